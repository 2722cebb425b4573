// Package onboarding drives the in-chat questionnaire that fills a user's
// profile. It holds no state of its own: the current step is always derived
// from the profile, so a conversation can resume after any restart.
package onboarding

import (
	"strings"

	"mamiland-backend-go/internal/models"
)

type Step int

const (
	StepName Step = iota
	StepAge
	StepPregnancyStatus
	StepPregnancyWeek
	StepMedicalConditions
	StepUserGroup
	StepComplete
)

const (
	MinAge  = 15
	MaxAge  = 60
	MinWeek = 1
	MaxWeek = 42
)

const (
	promptName        = "سلام! من هوش مصنوعی مامی‌لند هستم. لطفاً برای شروع کار اسم خودتون رو بگید."
	promptAge         = "لطفاً سن خودتون رو بگید."
	promptStatus      = "وضعیت فعلی شما چیست؟"
	promptWeek        = "لطفاً بگید هفته چندم بارداری هستید؟"
	promptConditions  = "آیا بیماری زمینه‌ای دارید؟ اگر دارید لطفاً توضیح دهید، در غیر این صورت \"ندارم\" بنویسید."
	promptGroup       = "شما در کدام گروه قرار می‌گیرید؟"
	promptDone        = "عالی! اطلاعات شما ذخیره شد و می‌توانید ادامه سوالاتتون رو بپرسید."
	retryAge          = "لطفاً سن معتبری وارد کنید (۱۵ تا ۶۰)."
	retryWeek         = "لطفاً یک عدد بین ۱ تا ۴۲ وارد کنید."
	retryChoice       = "لطفاً یکی از گزینه‌های ارائه شده را انتخاب کنید."
	optionMother      = "مادر هستم"
	optionPregnant    = "حامله هستم"
	optionNone        = "هیچکدام"
	optionPregnantAlt = "باردار هستم"
)

var statusOptions = []string{optionMother, optionPregnant, optionNone}

var groupLabels = []struct {
	label string
	group models.UserGroup
}{
	{"سالمند", models.GroupElderly},
	{"کودک", models.GroupChild},
	{"مادر باردار", models.GroupPregnantMother},
	{"مادر بعد از زایمان", models.GroupPostpartumMother},
	{"مادر شیرده", models.GroupBreastfeedingMother},
}

// Result is the outcome of one conversational turn.
type Result struct {
	Profile  models.UserProfile
	Reply    string
	Step     Step
	Options  []string
	Advanced bool
}

// CurrentStep derives the questionnaire position from the profile alone.
func CurrentStep(p models.UserProfile) Step {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return StepName
	case p.Age == nil:
		return StepAge
	case p.IsPregnant == nil && p.PregnancyWeek == nil:
		return StepPregnancyStatus
	case p.IsPregnant != nil && *p.IsPregnant && p.PregnancyWeek == nil:
		return StepPregnancyWeek
	case p.MedicalConditions == nil || strings.TrimSpace(*p.MedicalConditions) == "":
		return StepMedicalConditions
	case p.UserGroup == "":
		return StepUserGroup
	}
	return StepComplete
}

// Complete reports whether the profile has answered every question.
func Complete(p models.UserProfile) bool {
	return CurrentStep(p) == StepComplete
}

// Prompt is the question asked when the user arrives at step.
func Prompt(step Step, p models.UserProfile) string {
	switch step {
	case StepName:
		return promptName
	case StepAge:
		if name := strings.TrimSpace(p.Name); name != "" {
			return "خوشبختم " + name + "! " + promptAge
		}
		return promptAge
	case StepPregnancyStatus:
		return promptStatus
	case StepPregnancyWeek:
		return promptWeek
	case StepMedicalConditions:
		return promptConditions
	case StepUserGroup:
		return promptGroup
	}
	return promptDone
}

// Options lists the fixed answers offered at step, if any.
func Options(step Step) []string {
	switch step {
	case StepPregnancyStatus:
		return append([]string(nil), statusOptions...)
	case StepUserGroup:
		labels := make([]string, 0, len(groupLabels))
		for _, item := range groupLabels {
			labels = append(labels, item.label)
		}
		return labels
	}
	return nil
}

// Advance applies one user message to the profile. Invalid answers leave the
// profile untouched and produce a re-prompt for the same step. A complete
// profile is returned unchanged; the caller routes those turns to the AI.
func Advance(p models.UserProfile, input string) Result {
	step := CurrentStep(p)
	text := strings.TrimSpace(input)

	switch step {
	case StepName:
		if text == "" {
			return retry(p, step, promptName)
		}
		p.Name = text

	case StepAge:
		age, ok := ParseLeadingInt(text)
		if !ok || age < MinAge || age > MaxAge {
			return retry(p, step, retryAge)
		}
		p.Age = &age

	case StepPregnancyStatus:
		if !applyPregnancyStatus(&p, text) {
			return retry(p, step, retryChoice)
		}

	case StepPregnancyWeek:
		week, ok := ParseLeadingInt(text)
		if !ok || week < MinWeek || week > MaxWeek {
			return retry(p, step, retryWeek)
		}
		p.PregnancyWeek = &week

	case StepMedicalConditions:
		if text == "" {
			return retry(p, step, promptConditions)
		}
		p.MedicalConditions = &text

	case StepUserGroup:
		group, ok := GroupFromLabel(text)
		if !ok {
			return retry(p, step, retryChoice)
		}
		p.UserGroup = group

	default:
		return Result{Profile: p, Step: StepComplete}
	}

	next := CurrentStep(p)
	p.IsComplete = next == StepComplete
	return Result{
		Profile:  p,
		Reply:    Prompt(next, p),
		Step:     next,
		Options:  Options(next),
		Advanced: true,
	}
}

func retry(p models.UserProfile, step Step, reply string) Result {
	return Result{Profile: p, Reply: reply, Step: step, Options: Options(step)}
}

// applyPregnancyStatus accepts one of the offered labels verbatim, or else a
// short yes/no answer. Anything else leaves the profile untouched.
func applyPregnancyStatus(p *models.UserProfile, text string) bool {
	notApplicable := 0
	switch Normalize(text) {
	case optionPregnant, optionPregnantAlt:
		pregnant := true
		p.IsPregnant = &pregnant
		return true
	case optionMother:
		pregnant := false
		p.IsPregnant = &pregnant
		p.PregnancyWeek = &notApplicable
		return true
	case optionNone, "هیچ کدام", "هیچ‌کدام":
		p.IsPregnant = nil
		p.PregnancyWeek = &notApplicable
		return true
	}

	switch MatchYesNo(text) {
	case AnswerYes:
		pregnant := true
		p.IsPregnant = &pregnant
		return true
	case AnswerNo:
		pregnant := false
		p.IsPregnant = &pregnant
		p.PregnancyWeek = &notApplicable
		return true
	}
	return false
}

// GroupFromLabel maps a displayed group label, or the group's own identifier,
// to the group.
func GroupFromLabel(text string) (models.UserGroup, bool) {
	normalized := Normalize(text)
	for _, item := range groupLabels {
		if normalized == item.label {
			return item.group, true
		}
	}
	candidate := models.UserGroup(strings.ToLower(normalized))
	if candidate.Valid() {
		return candidate, true
	}
	return "", false
}

// GroupLabel is the Persian label shown for group.
func GroupLabel(group models.UserGroup) string {
	for _, item := range groupLabels {
		if item.group == group {
			return item.label
		}
	}
	return ""
}
