package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

func TestMirrorDayTwoSubjects(t *testing.T) {
	assert.Equal(t, "Desenho, Física", MirrorDay("Física, Desenho"))
	assert.Equal(t, "Física, Desenho", MirrorDay(MirrorDay("Física, Desenho")))
}

func TestMirrorDayInvolution(t *testing.T) {
	cases := []string{"Física, Desenho", "Matemática, Química", "Português, Biologia", "A, B"}
	for _, label := range cases {
		assert.Equal(t, label, MirrorDay(MirrorDay(label)), label)
	}
}

func TestMirrorDayFixedPoints(t *testing.T) {
	assert.Equal(t, models.NoClass, MirrorDay(models.NoClass))
	assert.Equal(t, "Matemática", MirrorDay("Matemática"))
	assert.Equal(t, "", MirrorDay(""))
	assert.Equal(t, "  Matemática ", MirrorDay("  Matemática "))
}

func TestMirrorDayTrimsSubjects(t *testing.T) {
	assert.Equal(t, "Desenho, Física", MirrorDay("  Física ,Desenho  "))
}

func TestMirrorDayIgnoresEmptySegments(t *testing.T) {
	assert.Equal(t, "Física,", MirrorDay("Física,"))
	assert.Equal(t, "Física, ", MirrorDay("Física, "))
	assert.Equal(t, " , ", MirrorDay(" , "))
	assert.Equal(t, "Desenho, Física", MirrorDay("Física, , Desenho,"))
}

func TestMirrorDayMoreThanTwoSubjects(t *testing.T) {
	assert.Equal(t, "C, B, A", MirrorDay("A, B, C"))
}

func TestMirrorWeek(t *testing.T) {
	week := models.WeeklySchedule{
		"segunda": "Física, Desenho",
		"terca":   "Matemática",
		"quarta":  models.NoClass,
	}
	mirrored := MirrorWeek(week)

	assert.Equal(t, "Desenho, Física", mirrored["segunda"])
	assert.Equal(t, "Matemática", mirrored["terca"])
	assert.Equal(t, models.NoClass, mirrored["quarta"])
	assert.Equal(t, "Física, Desenho", week["segunda"], "input must not be modified")
	assert.Equal(t, week, MirrorWeek(mirrored))
}

func TestResolveClassSchedule(t *testing.T) {
	pair := models.CoursePair{WeeklySchedule: models.WeeklySchedule{"segunda": "Física, Desenho"}}

	a := ResolveClassSchedule(pair, models.Class{Variant: models.VariantA})
	b := ResolveClassSchedule(pair, models.Class{Variant: models.VariantB})
	own := ResolveClassSchedule(pair, models.Class{
		Variant:        models.VariantB,
		WeeklySchedule: models.WeeklySchedule{"segunda": "Química"},
	})

	assert.Equal(t, "Física, Desenho", a["segunda"])
	assert.Equal(t, "Desenho, Física", b["segunda"])
	assert.Equal(t, "Química", own["segunda"])
}

func TestNormalize(t *testing.T) {
	out := Normalize(models.WeeklySchedule{"segunda": " Física ", "sabado": "x"})

	assert.Len(t, out, len(models.Weekdays))
	assert.Equal(t, "Física", out["segunda"])
	assert.Equal(t, models.NoClass, out["sexta"])
	_, ok := out["sabado"]
	assert.False(t, ok)
}
