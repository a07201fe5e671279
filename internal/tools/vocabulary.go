package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/apperr"
	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/model/job"
)

// Tool names.
const (
	GetJobDetails           = "get_job_details"
	UpdateApplicationField  = "update_application_field"
	GetApplicationStatus    = "get_application_status"
	SubmitApplication       = "submit_application"
	SubmitKeySkills         = "submit_key_skills"
	SubmitPersonalStatement = "submit_personal_statement"
	GetEncouragement        = "get_encouragement"
)

// ApplicationService is the state manager surface the tools call into.
type ApplicationService interface {
	GetJob(ctx context.Context, jobID string) (job.Job, error)
	UpdateField(ctx context.Context, sessionID, field, value string) (model.Event, error)
	GetStatus(ctx context.Context, sessionID string) (model.Status, error)
	Submit(ctx context.Context, sessionID, jobID string) (model.SubmitResult, error)
}

func str(description string) Property {
	return Property{Type: "string", Description: description}
}

// NewVocabulary builds the registry of every tool bound to svc.
func NewVocabulary(svc ApplicationService, logger *zap.Logger) *Registry {
	v := &vocabulary{svc: svc}
	return NewRegistry(logger,
		Tool{
			Definition: Definition{
				Name:        GetJobDetails,
				Description: "Get details about an internal position to provide context for the conversation.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"job_id":   str("The ID of the position"),
						"language": {Type: "string", Description: "Display language", Enum: []string{"en", "de"}, Default: "en"},
					},
					Required: []string{"job_id"},
				},
			},
			Handler: v.getJobDetails,
		},
		Tool{
			Definition: Definition{
				Name:        UpdateApplicationField,
				Description: "Update a specific field in the application form in real time as the candidate provides information.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"session_id": str("The session ID for this application"),
						"field_name": str("The field to update, e.g. name, email, phone, years_experience, skills, cover_letter"),
						"value":      {Type: "string", Description: "The value to set for the field; an empty string clears it", AllowEmpty: true},
					},
					Required: []string{"session_id", "field_name", "value"},
				},
			},
			Handler: v.updateField,
		},
		Tool{
			Definition: Definition{
				Name:        GetApplicationStatus,
				Description: "Get the current status of an application form to see which fields have been filled.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"session_id": str("The session ID for this application"),
					},
					Required: []string{"session_id"},
				},
			},
			Handler: v.getStatus,
		},
		Tool{
			Definition: Definition{
				Name:        SubmitApplication,
				Description: "Submit the completed application once name, email and phone are filled.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"session_id": str("The session ID for this application"),
						"job_id":     str("The ID of the job being applied for"),
					},
					Required: []string{"session_id", "job_id"},
				},
			},
			Handler: v.submit,
		},
		Tool{
			Definition: Definition{
				Name:        SubmitKeySkills,
				Description: "Save the employee's key skills and experience for the application.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"session_id":  str("The session ID for this application"),
						"skills_text": str("The employee's articulated skills and experience"),
					},
					Required: []string{"session_id", "skills_text"},
				},
			},
			Handler: v.fieldAlias(model.FieldKeySkills, "skills_text"),
		},
		Tool{
			Definition: Definition{
				Name:        SubmitPersonalStatement,
				Description: "Save the employee's personal statement about why they are a good fit.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"session_id":     str("The session ID for this application"),
						"statement_text": str("The employee's personal statement"),
					},
					Required: []string{"session_id", "statement_text"},
				},
			},
			Handler: v.fieldAlias(model.FieldPersonalStatement, "statement_text"),
		},
		Tool{
			Definition: Definition{
				Name:        GetEncouragement,
				Description: "Provide contextual encouragement during the application process.",
				InputSchema: Schema{
					Type: "object",
					Properties: map[string]Property{
						"context": {Type: "string", Description: "The context for encouragement", Enum: encouragementContexts(), Default: defaultEncouragementContext},
					},
					Required: []string{},
				},
			},
			Handler: getEncouragement,
		},
	)
}

type vocabulary struct {
	svc ApplicationService
}

func (v *vocabulary) getJobDetails(ctx context.Context, args Args) (Result, error) {
	jobID, _ := args.String("job_id")
	j, err := v.svc.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	language, _ := args.String("language")
	return Result{
		"job":     j.Localized(language),
		"message": "I've reviewed the position details. This looks like an exciting opportunity! What aspects of this role appeal most to you?",
	}, nil
}

func (v *vocabulary) updateField(ctx context.Context, args Args) (Result, error) {
	sessionID, _ := args.String("session_id")
	field, _ := args.String("field_name")
	value, _ := args.String("value")
	return v.applyField(ctx, sessionID, field, value)
}

func (v *vocabulary) applyField(ctx context.Context, sessionID, field, value string) (Result, error) {
	if _, err := v.svc.UpdateField(ctx, sessionID, field, value); err != nil {
		return Result{"field_name": field}, err
	}
	return Result{
		"field_name": field,
		"value":      preview(value),
		"message":    fieldMessage(field),
	}, nil
}

// fieldAlias adapts a single-field convenience tool onto update_field.
func (v *vocabulary) fieldAlias(field, param string) HandlerFunc {
	return func(ctx context.Context, args Args) (Result, error) {
		sessionID, _ := args.String("session_id")
		value, _ := args.String(param)
		return v.applyField(ctx, sessionID, field, value)
	}
}

func (v *vocabulary) getStatus(ctx context.Context, args Args) (Result, error) {
	sessionID, _ := args.String("session_id")
	st, err := v.svc.GetStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Result{
		"session_id":            st.SessionID,
		"filled_fields":         st.Filled,
		"missing_required":      st.MissingRequired,
		"completion_percentage": st.CompletionPercentage,
		"current_data":          st.ApplicationData,
		"ready_to_submit":       st.ReadyToSubmit,
		"submitted":             st.Submitted,
	}, nil
}

func (v *vocabulary) submit(ctx context.Context, args Args) (Result, error) {
	sessionID, _ := args.String("session_id")
	jobID, _ := args.String("job_id")
	res, err := v.svc.Submit(ctx, sessionID, jobID)
	if err != nil {
		if apperr.Is(err, apperr.ErrTypeValidation) {
			return nil, err
		}
		return Result{
			"message": "There was an issue submitting your application, but don't worry - your responses have been saved. Please try again or contact HR for assistance.",
		}, err
	}
	if res.AlreadySubmitted {
		return Result{
			"application_id":    res.ApplicationID,
			"job_id":            res.JobID,
			"already_submitted": true,
			"message":           "Application already submitted.",
		}, nil
	}
	return Result{
		"application_id":    res.ApplicationID,
		"job_id":            res.JobID,
		"already_submitted": false,
		"message":           "Congratulations! Your application has been submitted successfully. The hiring team will review your application and reach out soon. Best of luck!",
		"next_steps":        "You'll receive an email confirmation shortly. The hiring manager typically responds within 3-5 business days.",
	}, nil
}

func getEncouragement(_ context.Context, args Args) (Result, error) {
	c, ok := args.String("context")
	if !ok || c == "" {
		c = defaultEncouragementContext
	}
	msg, known := encouragements[c]
	if !known {
		msg = encouragements[defaultEncouragementContext]
	}
	return Result{"message": msg, "context": c}, nil
}
