package assistant

import (
	"strconv"
	"strings"

	"mamiland-backend-go/internal/models"
	"mamiland-backend-go/internal/onboarding"
)

const persona = `
تو یک مشاور هستی (دستیار هوش مصنوعی مامی‌لند) و وظیفه‌ت همدلی و همراهی با مادرهاست.
نباید خیلی تخصصی جواب بدی؛ باید صمیمی، دلسوز و خودمونی باشی. اگر سوال خیلی تخصصی بود، ارجاع بده به واتساپ مامی‌لند.
جواب باید ۲ تا ۵ خط باشه و حتماً فارسی و غیررسمی.
سوالاتی که مربوط به پزشکی نیستن رو نباید جواب بدی
System: You are a helpful assistant for MamiLand (مامی‌لند), a Persian website specialized in pregnancy and motherhood support. Always respond in Persian language. Be friendly, supportive, and informal.
`

const profileHint = "از این اطلاعات برای جواب دادن استفاده کن. اسم کاربر رو اگه خواستی استفاده کن، مشکلی نیست."

// Turn is one line of conversation history.
type Turn struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// BuildPrompt renders the single text prompt sent to the completion service:
// persona, the profile block for completed profiles, then the history.
func BuildPrompt(profile *models.UserProfile, history []Turn) string {
	var b strings.Builder
	b.WriteString(persona)

	if profile != nil && profile.IsComplete {
		b.WriteString("\n\nUser Profile:\n")
		b.WriteString("- Name: " + profile.Name + "\n")
		b.WriteString("- Age: " + intOr(profile.Age, "") + "\n")
		status := "غیر باردار"
		if profile.IsPregnant != nil && *profile.IsPregnant {
			status = "باردار"
		}
		b.WriteString("- Pregnancy Status: " + status + "\n")
		week := "مشخص نشده"
		if profile.PregnancyWeek != nil && *profile.PregnancyWeek > 0 {
			week = strconv.Itoa(*profile.PregnancyWeek)
		}
		b.WriteString("- Pregnancy Week: " + week + "\n")
		conditions := "هیچی"
		if profile.MedicalConditions != nil && strings.TrimSpace(*profile.MedicalConditions) != "" {
			conditions = strings.TrimSpace(*profile.MedicalConditions)
		}
		b.WriteString("- Medical Conditions: " + conditions + "\n")
		if label := onboarding.GroupLabel(profile.UserGroup); label != "" {
			b.WriteString("- User Group: " + label + "\n")
		}
		b.WriteString("\n" + profileHint + "\n")
	}

	b.WriteString("\n\nChat History:\n")
	for i, turn := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		role := "Assistant"
		if turn.Role == models.RoleUser {
			role = "User"
		}
		b.WriteString(role + ": " + turn.Content)
	}
	return b.String()
}

func intOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return strconv.Itoa(*v)
}
