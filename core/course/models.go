package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

// Author is a snapshot of the user behind a question, an answer, a review or a reply.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"-"`
}

// Caller is the authenticated user acting on a course.
type Caller struct {
	Author
	Courses []string // enrolled course ids
	IsAdmin bool
}

// IsEnrolled reports whether the caller may access the course's full content.
func (c Caller) IsEnrolled(courseID string) bool {
	for _, id := range c.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

type (
	Course struct {
		ID             string        `json:"id"`
		Name           string        `json:"name"`
		Description    string        `json:"description"`
		Price          float64       `json:"price"`
		EstimatedPrice float64       `json:"estimated_price,omitempty"`
		Thumbnail      core.Asset    `json:"thumbnail"`
		Tags           string        `json:"tags"`
		Level          string        `json:"level"`
		DemoURL        string        `json:"demo_url"`
		Benefits       []Title       `json:"benefits"`
		Prerequisites  []Title       `json:"prerequisites"`
		CourseData     []ContentUnit `json:"course_data"`
		Reviews        []Review      `json:"reviews"`
		Rating         float64       `json:"rating"`
		Purchased      int           `json:"purchased"`
		CreatedAt      time.Time     `json:"created_at"`
		UpdatedAt      time.Time     `json:"updated_at"`
	}

	Title struct {
		Title string `json:"title" validate:"required,notblank"`
	}

	Link struct {
		Title string `json:"title" validate:"required"`
		URL   string `json:"url" validate:"required,url"`
	}

	// ContentUnit is one lesson of a course. VideoURL, Suggestion, Links and Questions are
	// only exposed to enrolled users.
	ContentUnit struct {
		ID             string     `json:"id"`
		Title          string     `json:"title"`
		Description    string     `json:"description"`
		VideoURL       string     `json:"video_url,omitempty"`
		VideoThumbnail string     `json:"video_thumbnail"`
		VideoSection   string     `json:"video_section"`
		VideoLength    int        `json:"video_length"`
		VideoPlayer    string     `json:"video_player"`
		Links          []Link     `json:"links,omitempty"`
		Suggestion     string     `json:"suggestion,omitempty"`
		Questions      []Question `json:"questions,omitempty"`
	}

	Question struct {
		ID              string    `json:"id"`
		User            Author    `json:"user"`
		Question        string    `json:"question"`
		QuestionReplies []Answer  `json:"question_replies"`
		CreatedAt       time.Time `json:"created_at"`
	}

	Answer struct {
		ID        string    `json:"id"`
		User      Author    `json:"user"`
		Answer    string    `json:"answer"`
		CreatedAt time.Time `json:"created_at"`
	}

	Review struct {
		ID             string          `json:"id"`
		User           Author          `json:"user"`
		Rating         float64         `json:"rating"`
		Comment        string          `json:"comment"`
		CommentReplies []ReplyToReview `json:"comment_replies,omitempty"`
		CreatedAt      time.Time       `json:"created_at"`
	}

	ReplyToReview struct {
		ID        string    `json:"id"`
		User      Author    `json:"user"`
		Comment   string    `json:"comment"`
		CreatedAt time.Time `json:"created_at"`
	}
)

// Content returns the content unit identified by id.
func (c Course) Content(id string) (ContentUnit, bool) {
	for _, cu := range c.CourseData {
		if cu.ID == id {
			return cu, true
		}
	}
	return ContentUnit{}, false
}

// Question returns the question identified by id.
func (cu ContentUnit) Question(id string) (Question, bool) {
	for _, q := range cu.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Review returns the review identified by id.
func (c Course) Review(id string) (Review, bool) {
	for _, r := range c.Reviews {
		if r.ID == id {
			return r, true
		}
	}
	return Review{}, false
}

// Summary returns a copy of the course stripped of its enrolled-only content.
func (c Course) Summary() Course {
	data := make([]ContentUnit, len(c.CourseData))
	for i, cu := range c.CourseData {
		cu.VideoURL = ""
		cu.Suggestion = ""
		cu.Links = nil
		cu.Questions = nil
		data[i] = cu
	}
	c.CourseData = data
	return c
}

// AverageRating returns the mean of the reviews ratings, 0 when there is no review.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}

// NewContentUnit contains information needed to create a ContentUnit.
type NewContentUnit struct {
	ID             string `json:"id" validate:"omitempty,objectid"`
	Title          string `json:"title" validate:"required,notblank"`
	Description    string `json:"description"`
	VideoURL       string `json:"video_url" validate:"omitempty,url"`
	VideoThumbnail string `json:"video_thumbnail"`
	VideoSection   string `json:"video_section"`
	VideoLength    int    `json:"video_length" validate:"gte=0"`
	VideoPlayer    string `json:"video_player"`
	Links          []Link `json:"links" validate:"dive"`
	Suggestion     string `json:"suggestion"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name           string           `json:"name" validate:"required,notblank"`
	Description    string           `json:"description" validate:"required"`
	Price          float64          `json:"price" validate:"gte=0"`
	EstimatedPrice float64          `json:"estimated_price" validate:"gte=0"`
	Thumbnail      string           `json:"thumbnail"` // data URI, uploaded on create
	Tags           string           `json:"tags" validate:"required"`
	Level          string           `json:"level" validate:"required"`
	DemoURL        string           `json:"demo_url" validate:"required,url"`
	Benefits       []Title          `json:"benefits" validate:"dive"`
	Prerequisites  []Title          `json:"prerequisites" validate:"dive"`
	CourseData     []NewContentUnit `json:"course_data" validate:"dive"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Tags = core.CleanString(nc.Tags)
	nc.Level = core.CleanString(nc.Level)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// Nil fields are left untouched; provided fields replace the stored ones.
type UpdateCourse struct {
	Name           *string          `json:"name" validate:"omitempty,notblank"`
	Description    *string          `json:"description"`
	Price          *float64         `json:"price" validate:"omitempty,gte=0"`
	EstimatedPrice *float64         `json:"estimated_price" validate:"omitempty,gte=0"`
	Thumbnail      string           `json:"thumbnail"` // data URI, replaces the current thumbnail
	Tags           *string          `json:"tags"`
	Level          *string          `json:"level"`
	DemoURL        *string          `json:"demo_url" validate:"omitempty,url"`
	Benefits       []Title          `json:"benefits" validate:"omitempty,dive"`
	Prerequisites  []Title          `json:"prerequisites" validate:"omitempty,dive"`
	CourseData     []NewContentUnit `json:"course_data" validate:"omitempty,dive"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
	}
	return validate.Struct(uc)
}

// IsEmpty reports whether no field is provided.
func (uc UpdateCourse) IsEmpty() bool {
	return uc.Name == nil && uc.Description == nil && uc.Price == nil && uc.EstimatedPrice == nil &&
		uc.Thumbnail == "" && uc.Tags == nil && uc.Level == nil && uc.DemoURL == nil &&
		uc.Benefits == nil && uc.Prerequisites == nil && uc.CourseData == nil
}

// CourseFields is the set of fields an update replaces. Nil fields are left untouched.
type CourseFields struct {
	Name           *string
	Description    *string
	Price          *float64
	EstimatedPrice *float64
	Thumbnail      *core.Asset
	Tags           *string
	Level          *string
	DemoURL        *string
	Benefits       []Title
	Prerequisites  []Title
	CourseData     []ContentUnit
	UpdatedAt      time.Time
}

// Apply returns a copy of c with the fields replaced.
func (f CourseFields) Apply(c Course) Course {
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.Description != nil {
		c.Description = *f.Description
	}
	if f.Price != nil {
		c.Price = *f.Price
	}
	if f.EstimatedPrice != nil {
		c.EstimatedPrice = *f.EstimatedPrice
	}
	if f.Thumbnail != nil {
		c.Thumbnail = *f.Thumbnail
	}
	if f.Tags != nil {
		c.Tags = *f.Tags
	}
	if f.Level != nil {
		c.Level = *f.Level
	}
	if f.DemoURL != nil {
		c.DemoURL = *f.DemoURL
	}
	if f.Benefits != nil {
		c.Benefits = f.Benefits
	}
	if f.Prerequisites != nil {
		c.Prerequisites = f.Prerequisites
	}
	if f.CourseData != nil {
		c.CourseData = f.CourseData
	}
	c.UpdatedAt = f.UpdatedAt
	return c
}

// Requests for the nested content.

type NewQuestion struct {
	ContentID string `json:"content_id" validate:"required"`
	Question  string `json:"question" validate:"required,notblank"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.ContentID = core.CleanString(nq.ContentID)
	nq.Question = core.CleanString(nq.Question)
	return validate.Struct(nq)
}

type NewAnswer struct {
	ContentID  string `json:"content_id" validate:"required"`
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer" validate:"required,notblank"`
}

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.ContentID = core.CleanString(na.ContentID)
	na.QuestionID = core.CleanString(na.QuestionID)
	na.Answer = core.CleanString(na.Answer)
	return validate.Struct(na)
}

type NewReview struct {
	Review string  `json:"review" validate:"required,notblank"`
	Rating float64 `json:"rating" validate:"gte=1,lte=5"`
}

func (nr *NewReview) Validate(validate *validator.Validate) error {
	nr.Review = core.CleanString(nr.Review)
	return validate.Struct(nr)
}

type NewReviewReply struct {
	Comment string `json:"comment" validate:"required,notblank"`
}

func (nr *NewReviewReply) Validate(validate *validator.Validate) error {
	nr.Comment = core.CleanString(nr.Comment)
	return validate.Struct(nr)
}
