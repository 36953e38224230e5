package course

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		ratings []float64
		want    float64
	}{
		{"no review", nil, 0},
		{"one review", []float64{4}, 4},
		{"mean", []float64{5, 3}, 4},
		{"fractional", []float64{5, 4, 4}, 13.0 / 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := make([]Review, 0, len(tt.ratings))
			for _, r := range tt.ratings {
				reviews = append(reviews, Review{Rating: r})
			}
			assert.InDelta(t, tt.want, AverageRating(reviews), 1e-9)
		})
	}
}

func TestCourse_Summary(t *testing.T) {
	c := Course{
		ID: core.NewID(),
		CourseData: []ContentUnit{{
			ID:         core.NewID(),
			Title:      "Intro",
			VideoURL:   "https://videos.example.com/1",
			Suggestion: "Relax",
			Links:      []Link{{Title: "Go", URL: "https://go.dev"}},
			Questions:  []Question{{ID: core.NewID(), Question: "?"}},
		}},
	}

	s := c.Summary()
	assert.Equal(t, "Intro", s.CourseData[0].Title)
	assert.Empty(t, s.CourseData[0].VideoURL)
	assert.Empty(t, s.CourseData[0].Suggestion)
	assert.Nil(t, s.CourseData[0].Links)
	assert.Nil(t, s.CourseData[0].Questions)

	// the original is left untouched
	assert.Equal(t, "https://videos.example.com/1", c.CourseData[0].VideoURL)
	assert.Len(t, c.CourseData[0].Questions, 1)
}

func TestCourse_Lookups(t *testing.T) {
	q := Question{ID: core.NewID()}
	cu := ContentUnit{ID: core.NewID(), Questions: []Question{q}}
	r := Review{ID: core.NewID()}
	c := Course{CourseData: []ContentUnit{cu}, Reviews: []Review{r}}

	got, ok := c.Content(cu.ID)
	assert.True(t, ok)
	assert.Equal(t, cu.ID, got.ID)
	_, ok = c.Content(core.NewID())
	assert.False(t, ok)

	gotQ, ok := got.Question(q.ID)
	assert.True(t, ok)
	assert.Equal(t, q.ID, gotQ.ID)
	_, ok = got.Question(core.NewID())
	assert.False(t, ok)

	gotR, ok := c.Review(r.ID)
	assert.True(t, ok)
	assert.Equal(t, r.ID, gotR.ID)
	_, ok = c.Review(core.NewID())
	assert.False(t, ok)
}

func TestCaller_IsEnrolled(t *testing.T) {
	id := core.NewID()
	caller := Caller{Courses: []string{id}}
	assert.True(t, caller.IsEnrolled(id))
	assert.False(t, caller.IsEnrolled(core.NewID()))
	assert.False(t, Caller{}.IsEnrolled(id))
}

func TestUpdateCourse_IsEmpty(t *testing.T) {
	name := "x"
	assert.True(t, UpdateCourse{}.IsEmpty())
	assert.False(t, UpdateCourse{Name: &name}.IsEmpty())
	assert.False(t, UpdateCourse{Thumbnail: "data:image/png;base64,AA=="}.IsEmpty())
	assert.False(t, UpdateCourse{Benefits: []Title{}}.IsEmpty())
}

func TestCourseFields_Apply(t *testing.T) {
	now := time.Now().UTC()
	c := Course{Name: "Go", Description: "desc", Price: 10, Benefits: []Title{{Title: "a"}}}

	price := 0.0
	asset := core.Asset{PublicID: "courses/x.png", URL: "/media/courses/x.png"}
	got := CourseFields{Price: &price, Thumbnail: &asset, Benefits: []Title{}, UpdatedAt: now}.Apply(c)

	assert.Equal(t, "Go", got.Name)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, 0.0, got.Price)
	assert.Equal(t, asset, got.Thumbnail)
	assert.Empty(t, got.Benefits)
	assert.Equal(t, now, got.UpdatedAt)
	assert.Equal(t, 10.0, c.Price)
}
