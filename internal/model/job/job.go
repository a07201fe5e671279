package job

import (
	"time"
)

// Job is an immutable catalog entry. The *_de fields carry the German display
// variant and are empty when no translation exists.
type Job struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Department   string `json:"department"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	Location     string `json:"location"`
	GrowthPath   string `json:"growth_path"`
	PostedDate   string `json:"posted_date"`
	TeamSize     string `json:"team_size,omitempty"`

	TitleDE        string `json:"title_de,omitempty"`
	DepartmentDE   string `json:"department_de,omitempty"`
	DescriptionDE  string `json:"description_de,omitempty"`
	RequirementsDE string `json:"requirements_de,omitempty"`
	LocationDE     string `json:"location_de,omitempty"`
	GrowthPathDE   string `json:"growth_path_de,omitempty"`
}

// Localized returns a copy whose primary fields use the requested language
// where a translation is present.
func (j Job) Localized(language string) Job {
	if language != "de" {
		return j
	}
	out := j
	pick := func(dst *string, de string) {
		if de != "" {
			*dst = de
		}
	}
	pick(&out.Title, j.TitleDE)
	pick(&out.Department, j.DepartmentDE)
	pick(&out.Description, j.DescriptionDE)
	pick(&out.Requirements, j.RequirementsDE)
	pick(&out.Location, j.LocationDE)
	pick(&out.GrowthPath, j.GrowthPathDE)
	return out
}

// ToHash flattens the job into the persisted hash layout. Empty optional
// fields are omitted.
func (j Job) ToHash() map[string]string {
	h := map[string]string{
		"id":           j.ID,
		"title":        j.Title,
		"department":   j.Department,
		"description":  j.Description,
		"requirements": j.Requirements,
		"location":     j.Location,
		"growth_path":  j.GrowthPath,
		"posted_date":  j.PostedDate,
	}
	optional := map[string]string{
		"team_size":       j.TeamSize,
		"title_de":        j.TitleDE,
		"department_de":   j.DepartmentDE,
		"description_de":  j.DescriptionDE,
		"requirements_de": j.RequirementsDE,
		"location_de":     j.LocationDE,
		"growth_path_de":  j.GrowthPathDE,
	}
	for k, v := range optional {
		if v != "" {
			h[k] = v
		}
	}
	return h
}

// FromHash rebuilds a job from its persisted hash.
func FromHash(h map[string]string) Job {
	return Job{
		ID:             h["id"],
		Title:          h["title"],
		Department:     h["department"],
		Description:    h["description"],
		Requirements:   h["requirements"],
		Location:       h["location"],
		GrowthPath:     h["growth_path"],
		PostedDate:     h["posted_date"],
		TeamSize:       h["team_size"],
		TitleDE:        h["title_de"],
		DepartmentDE:   h["department_de"],
		DescriptionDE:  h["description_de"],
		RequirementsDE: h["requirements_de"],
		LocationDE:     h["location_de"],
		GrowthPathDE:   h["growth_path_de"],
	}
}

// Seed returns the demo internal positions, stamped with postedAt. Later
// entries are posted slightly earlier so the newest-first order is stable.
func Seed(postedAt time.Time) []Job {
	jobs := []Job{
		{
			ID:             "job_001",
			Title:          "Senior Project Manager",
			Department:     "Operations",
			Description:    "Lead cross-functional teams to deliver strategic initiatives across the organization. This role offers exposure to executive leadership and the opportunity to shape our operational excellence.",
			Requirements:   "Experience in project management, strong stakeholder management skills, analytical mindset, ability to manage multiple priorities",
			Location:       "Main Campus - Building A",
			GrowthPath:     "Leadership track with potential progression to Director of Operations",
			TeamSize:       "12-15 team members",
			TitleDE:        "Senior Projektmanager/in",
			DepartmentDE:   "Betrieb",
			DescriptionDE:  "Führen Sie funktionsübergreifende Teams bei der Umsetzung strategischer Initiativen im gesamten Unternehmen. Die Rolle bietet direkten Kontakt zur Geschäftsleitung.",
			RequirementsDE: "Erfahrung im Projektmanagement, ausgeprägtes Stakeholder-Management, analytisches Denken, Fähigkeit mehrere Prioritäten zu steuern",
			LocationDE:     "Hauptcampus - Gebäude A",
			GrowthPathDE:   "Führungslaufbahn mit möglicher Entwicklung zur Leitung Betrieb",
		},
		{
			ID:             "job_002",
			Title:          "Lead Data Analyst",
			Department:     "Finance",
			Description:    "Join our Finance team to drive data-driven decision making. You'll work directly with CFO leadership to provide insights that shape our financial strategy.",
			Requirements:   "Strong analytical skills, experience with financial modeling, proficiency in data visualization tools, understanding of business metrics",
			Location:       "Main Campus - Building B",
			GrowthPath:     "Analytics leadership path with exposure to strategic planning",
			TeamSize:       "5-7 team members",
			TitleDE:        "Leitende/r Datenanalyst/in",
			DepartmentDE:   "Finanzen",
			DescriptionDE:  "Verstärken Sie unser Finanzteam und treiben Sie datenbasierte Entscheidungen voran. Sie arbeiten direkt mit der Finanzleitung zusammen.",
			RequirementsDE: "Ausgeprägte analytische Fähigkeiten, Erfahrung mit Finanzmodellen, sicherer Umgang mit Visualisierungswerkzeugen, Verständnis von Geschäftskennzahlen",
			LocationDE:     "Hauptcampus - Gebäude B",
			GrowthPathDE:   "Analytics-Führungslaufbahn mit Einblick in die strategische Planung",
		},
		{
			ID:             "job_003",
			Title:          "Product Owner",
			Department:     "Digital Innovation",
			Description:    "Drive the product vision for our internal digital transformation initiatives. You'll collaborate with IT and business units to modernize our employee experience.",
			Requirements:   "Product management mindset, understanding of agile methodologies, ability to translate business needs to technical requirements, strong communication skills",
			Location:       "Tech Hub - Flexible",
			GrowthPath:     "Product leadership with opportunity to shape digital strategy",
			TeamSize:       "8-10 team members",
			TitleDE:        "Product Owner",
			DepartmentDE:   "Digitale Innovation",
			DescriptionDE:  "Gestalten Sie die Produktvision unserer internen digitalen Transformation. Sie arbeiten mit IT und Fachbereichen an einer modernen Mitarbeitererfahrung.",
			RequirementsDE: "Produktdenken, Verständnis agiler Methoden, Übersetzung von Geschäftsanforderungen in technische Anforderungen, starke Kommunikation",
			LocationDE:     "Tech Hub - Flexibel",
			GrowthPathDE:   "Produktführung mit Gestaltungsspielraum für die Digitalstrategie",
		},
		{
			ID:             "job_004",
			Title:          "Team Lead - Customer Success",
			Department:     "Customer Experience",
			Description:    "Lead a team dedicated to ensuring customer satisfaction and retention. This people-focused role combines leadership with hands-on customer engagement.",
			Requirements:   "Leadership experience or potential, customer-centric mindset, problem-solving skills, ability to mentor and develop others",
			Location:       "Any Regional Office",
			GrowthPath:     "Management track with path to Head of Customer Success",
			TeamSize:       "8-12 team members",
			TitleDE:        "Teamleitung - Customer Success",
			DepartmentDE:   "Kundenerlebnis",
			DescriptionDE:  "Führen Sie ein Team, das Kundenzufriedenheit und Kundenbindung sichert. Die Rolle verbindet Personalführung mit direktem Kundenkontakt.",
			RequirementsDE: "Führungserfahrung oder -potenzial, kundenorientiertes Denken, Problemlösungskompetenz, Freude an der Entwicklung anderer",
			LocationDE:     "Beliebiges Regionalbüro",
			GrowthPathDE:   "Managementlaufbahn mit Perspektive zur Leitung Customer Success",
		},
		{
			ID:             "job_005",
			Title:          "Process Engineer - Manufacturing",
			Department:     "Production",
			Description:    "Optimize production lines at our Munich plant. You'll own continuous improvement projects and work closely with shift leads and quality assurance.",
			Requirements:   "Engineering background, lean or six sigma experience, hands-on mindset, German at business level",
			Location:       "Munich Plant",
			GrowthPath:     "Technical expert path towards Plant Engineering Manager",
			TeamSize:       "6-8 team members",
			TitleDE:        "Prozessingenieur/in - Fertigung",
			DepartmentDE:   "Produktion",
			DescriptionDE:  "Optimieren Sie die Produktionslinien in unserem Werk München. Sie verantworten KVP-Projekte und arbeiten eng mit Schichtleitung und Qualitätssicherung.",
			RequirementsDE: "Ingenieursstudium, Erfahrung mit Lean oder Six Sigma, Hands-on-Mentalität, verhandlungssicheres Deutsch",
			LocationDE:     "Werk München",
			GrowthPathDE:   "Fachlaufbahn mit Perspektive zur Leitung Werkstechnik",
		},
		{
			ID:             "job_006",
			Title:          "HR Business Partner",
			Department:     "Human Resources",
			Description:    "Partner with leadership in our DACH region on workforce planning, talent development and employee relations.",
			Requirements:   "Experience in HR advisory, knowledge of German labor law, strong interpersonal skills",
			Location:       "Berlin Office",
			GrowthPath:     "HR leadership track towards Head of People DACH",
			TeamSize:       "4-6 team members",
			TitleDE:        "HR Business Partner (m/w/d)",
			DepartmentDE:   "Personalwesen",
			DescriptionDE:  "Begleiten Sie die Führungskräfte der Region DACH bei Personalplanung, Talententwicklung und Mitarbeiterbeziehungen.",
			RequirementsDE: "Erfahrung in der HR-Beratung, Kenntnisse im deutschen Arbeitsrecht, ausgeprägte Kommunikationsstärke",
			LocationDE:     "Büro Berlin",
			GrowthPathDE:   "HR-Führungslaufbahn zur Leitung People DACH",
		},
	}
	for i := range jobs {
		jobs[i].PostedDate = postedAt.Add(-time.Duration(i) * time.Minute).UTC().Format(time.RFC3339)
	}
	return jobs
}
