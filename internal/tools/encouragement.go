package tools

import (
	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
)

var fieldMessages = map[string]string{
	model.FieldName:              "Thank you! It's great to connect with you.",
	model.FieldEmail:             "Perfect, I've noted your contact information.",
	model.FieldPhone:             "Got it, thank you for providing that.",
	model.FieldYearsExperience:   "That's excellent experience! Your background really aligns well with this role.",
	"experience":                 "That's excellent experience! Your background really aligns well with this role.",
	model.FieldSkills:            "Those are impressive skills! They'll definitely be valuable in this position.",
	"motivation":                 "I can really feel your enthusiasm! Your passion for this role comes through clearly.",
	model.FieldCoverLetter:       "That's a compelling statement! You've articulated your value very well.",
	model.FieldKeySkills:         "Excellent! I've captured your skills and experience. These really highlight your capabilities for this role.",
	model.FieldPersonalStatement: "Perfect! Your personal statement really shows your enthusiasm and fit for this role. You're ready to complete your application!",
}

const defaultFieldMessage = "Thank you for sharing that with me!"

func fieldMessage(field string) string {
	if msg, ok := fieldMessages[field]; ok {
		return msg
	}
	return defaultFieldMessage
}

const defaultEncouragementContext = "general"

var encouragements = map[string]string{
	"nervous":    "It's completely natural to feel nervous about internal moves. Remember, your company values your growth and wants to see you succeed. You already know the culture and have proven yourself here.",
	"unsure":     "It's okay to explore opportunities even if you're not 100% sure. This conversation is about discovering if this role aligns with your goals. There's no pressure - just be yourself.",
	"excited":    "Your enthusiasm is wonderful! That positive energy will really come through in your application. Let's channel that excitement into showcasing your strengths.",
	"general":    "You're doing great! Remember, applying for internal positions shows initiative and ambition. Your company wants to retain talented people like you.",
	"experience": "Every role you've had has given you valuable skills. Even experiences that seem unrelated often provide transferable skills that are highly valuable.",
	"skills":     "Don't underestimate your abilities. The skills you use daily in your current role are valuable assets. Let's identify how they apply to this new opportunity.",
}

func encouragementContexts() []string {
	return []string{"general", "nervous", "unsure", "excited", "experience", "skills"}
}

// previewLimit bounds the value echoed back in tool results. The stored value
// is never truncated.
const previewLimit = 100

func preview(value string) string {
	r := []rune(value)
	if len(r) <= previewLimit {
		return value
	}
	return string(r[:previewLimit]) + "..."
}
