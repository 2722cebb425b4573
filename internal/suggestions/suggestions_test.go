package suggestions

import (
	"math/rand/v2"
	"testing"

	"mamiland-backend-go/internal/models"
)

func textsFor(match func(Question) bool) map[string]bool {
	set := map[string]bool{}
	for _, q := range Catalog() {
		if match(q) {
			set[q.Text] = true
		}
	}
	return set
}

func TestPick(t *testing.T) {
	picker := Picker{IntN: rand.New(rand.NewPCG(1, 2)).IntN}

	tests := []struct {
		name    string
		group   models.UserGroup
		n       int
		wantLen int
		allowed map[string]bool
	}{
		{"no group gets general only", "", 4, 4, textsFor(Question.General)},
		{"pregnant mother", models.GroupPregnantMother, 4, 4, textsFor(func(q Question) bool { return q.For(models.GroupPregnantMother) })},
		{"default count", models.GroupChild, 0, DefaultCount, textsFor(func(q Question) bool { return q.For(models.GroupChild) })},
		{"more than available", models.GroupElderly, 20, 8, textsFor(func(q Question) bool { return q.For(models.GroupElderly) })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := picker.Pick(tt.group, tt.n)
			if len(got) != tt.wantLen {
				t.Fatalf("Pick() returned %d questions, want %d", len(got), tt.wantLen)
			}
			seen := map[string]bool{}
			for _, text := range got {
				if !tt.allowed[text] {
					t.Errorf("Pick() returned %q outside the group", text)
				}
				if seen[text] {
					t.Errorf("Pick() returned %q twice", text)
				}
				seen[text] = true
			}
		})
	}
}

func TestPickIsShuffled(t *testing.T) {
	// With a source that always picks index 0 the walk rotates the pool.
	picker := Picker{IntN: func(int) int { return 0 }}
	got := picker.Pick("", 4)
	if got[0] == "نکات مهم بهداشت خانواده" && got[1] == "چگونه استرس خانوادگی را مدیریت کنم؟" {
		t.Errorf("Pick() kept catalog order: %v", got)
	}
}

func TestCatalogShape(t *testing.T) {
	counts := map[models.UserGroup]int{}
	general := 0
	ids := map[string]bool{}
	for _, q := range Catalog() {
		if ids[q.ID] {
			t.Errorf("duplicate id %s", q.ID)
		}
		ids[q.ID] = true
		if q.General() {
			general++
			continue
		}
		for _, g := range q.Groups {
			counts[g]++
		}
	}
	if len(ids) != 27 {
		t.Errorf("catalog has %d questions, want 27", len(ids))
	}
	if general != 4 {
		t.Errorf("catalog has %d general questions, want 4", general)
	}
	for _, group := range models.AllGroups {
		if counts[group] == 0 {
			t.Errorf("no questions for %s", group)
		}
	}
}

func TestGroupFromProfile(t *testing.T) {
	yes, no := true, false
	age65, age16, age30 := 65, 16, 30

	tests := []struct {
		name    string
		profile models.UserProfile
		want    models.UserGroup
	}{
		{"explicit group wins", models.UserProfile{UserGroup: models.GroupChild, IsPregnant: &yes}, models.GroupChild},
		{"incomplete without group", models.UserProfile{IsPregnant: &yes}, ""},
		{"pregnant", models.UserProfile{IsComplete: true, IsPregnant: &yes}, models.GroupPregnantMother},
		{"not pregnant", models.UserProfile{IsComplete: true, IsPregnant: &no}, models.GroupPostpartumMother},
		{"older", models.UserProfile{IsComplete: true, Age: &age65}, models.GroupElderly},
		{"younger", models.UserProfile{IsComplete: true, Age: &age16}, models.GroupChild},
		{"nothing applies", models.UserProfile{IsComplete: true, Age: &age30}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GroupFromProfile(tt.profile); got != tt.want {
				t.Errorf("GroupFromProfile() = %q, want %q", got, tt.want)
			}
		})
	}
}
