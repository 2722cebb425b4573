package suggestions

import (
	"math/rand/v2"

	"mamiland-backend-go/internal/models"
)

const DefaultCount = 4

type Question struct {
	ID     string             `json:"id"`
	Text   string             `json:"text"`
	Groups []models.UserGroup `json:"groups"`
}

// General reports whether the question is offered to every audience.
func (q Question) General() bool {
	return len(q.Groups) > 2
}

func (q Question) For(group models.UserGroup) bool {
	for _, g := range q.Groups {
		if g == group {
			return true
		}
	}
	return false
}

var (
	pregnant      = []models.UserGroup{models.GroupPregnantMother}
	postpartum    = []models.UserGroup{models.GroupPostpartumMother}
	breastfeeding = []models.UserGroup{models.GroupBreastfeedingMother}
	child         = []models.UserGroup{models.GroupChild}
	elderly       = []models.UserGroup{models.GroupElderly}
	everyone      = models.AllGroups
)

var catalog = []Question{
	{"pregnancy_1", "نکات مهم تغذیه در بارداری چیست؟", pregnant},
	{"pregnancy_2", "علائم خطرناک بارداری کدامند؟", pregnant},
	{"pregnancy_3", "چگونه با تهوع بارداری کنار بیایم؟", pregnant},
	{"pregnancy_4", "ورزش مناسب در دوران بارداری چیست؟", pregnant},
	{"pregnancy_5", "چه ویتامین‌هایی در بارداری ضروری است؟", pregnant},

	{"postpartum_1", "چگونه از نوزاد تازه متولد شده مراقبت کنم؟", postpartum},
	{"postpartum_2", "نکات مهم شیردهی چیست؟", postpartum},
	{"postpartum_3", "چگونه با افسردگی بعد از زایمان مقابله کنم؟", postpartum},
	{"postpartum_4", "تغذیه مادر شیرده چگونه باید باشد؟", postpartum},
	{"postpartum_5", "چه زمانی باید نوزاد را به پزشک ببرم؟", postpartum},

	{"breastfeeding_1", "مشکلات شایع شیردهی و راه حل آنها", breastfeeding},
	{"breastfeeding_2", "چگونه شیر مادر را افزایش دهم؟", breastfeeding},
	{"breastfeeding_3", "تا چه سنی باید نوزاد شیر مادر بخورد؟", breastfeeding},
	{"breastfeeding_4", "آیا می‌توانم در دوران شیردهی دارو مصرف کنم؟", breastfeeding},

	{"child_1", "تغذیه مناسب کودک در سنین مختلف", child},
	{"child_2", "چگونه با لجبازی کودک برخورد کنم؟", child},
	{"child_3", "نکات ایمنی خانه برای کودکان", child},
	{"child_4", "چه زمانی کودک باید واکسن بزند؟", child},
	{"child_5", "چگونه خواب کودک را تنظیم کنم؟", child},

	{"elderly_1", "تغذیه مناسب برای سالمندان چیست؟", elderly},
	{"elderly_2", "چگونه از سقوط سالمندان جلوگیری کنم؟", elderly},
	{"elderly_3", "مراقبت از سالمند مبتلا به دیابت", elderly},
	{"elderly_4", "ورزش مناسب برای سالمندان کدام است؟", elderly},

	{"general_1", "نکات مهم بهداشت خانواده", everyone},
	{"general_2", "چگونه استرس خانوادگی را مدیریت کنم؟", everyone},
	{"general_3", "اهمیت خواب کافی برای سلامتی", everyone},
	{"general_4", "نکات مهم تغذیه سالم خانواده", everyone},
}

// Catalog returns a copy of the built-in question table.
func Catalog() []Question {
	return append([]Question(nil), catalog...)
}

// Picker draws random suggestions. The zero value uses the shared source.
type Picker struct {
	IntN func(n int) int
}

// Pick returns up to n question texts suited to group, topping up with
// general questions when the group has fewer than n of its own. An empty
// group gets general questions only.
func (p Picker) Pick(group models.UserGroup, n int) []string {
	if n <= 0 {
		n = DefaultCount
	}
	pool := make([]Question, 0, len(catalog))
	if group == "" {
		for _, q := range catalog {
			if q.General() {
				pool = append(pool, q)
			}
		}
	} else {
		for _, q := range catalog {
			if q.For(group) {
				pool = append(pool, q)
			}
		}
		if len(pool) < n {
			for _, q := range catalog {
				if q.General() && !q.For(group) {
					pool = append(pool, q)
				}
			}
		}
	}

	p.shuffle(pool)
	if len(pool) > n {
		pool = pool[:n]
	}
	texts := make([]string, 0, len(pool))
	for _, q := range pool {
		texts = append(texts, q.Text)
	}
	return texts
}

// Fisher-Yates.
func (p Picker) shuffle(items []Question) {
	intN := p.IntN
	if intN == nil {
		intN = rand.IntN
	}
	for i := len(items) - 1; i > 0; i-- {
		j := intN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Pick uses the shared random source.
func Pick(group models.UserGroup, n int) []string {
	return Picker{}.Pick(group, n)
}

// GroupFromProfile returns the explicit group when one was chosen, and
// otherwise infers one from a completed profile. Incomplete profiles with no
// group get none.
func GroupFromProfile(p models.UserProfile) models.UserGroup {
	if p.UserGroup != "" {
		return p.UserGroup
	}
	if !p.IsComplete {
		return ""
	}
	switch {
	case p.IsPregnant != nil && *p.IsPregnant:
		return models.GroupPregnantMother
	case p.IsPregnant != nil:
		return models.GroupPostpartumMother
	case p.Age != nil && *p.Age >= 60:
		return models.GroupElderly
	case p.Age != nil && *p.Age < 18:
		return models.GroupChild
	}
	return ""
}
