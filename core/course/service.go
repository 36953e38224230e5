package course

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

const (
	// AllCoursesKey is the cache key of the courses summaries list.
	AllCoursesKey = "allCourses"

	thumbnailFolder = "courses"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("course not found")
	ErrReviewNotFound    = core.NewNotFoundError("review not found")
	ErrNotEnrolled       = core.NewPermissionError("you are not eligible to access this course")
	ErrInvalidContentID  = core.NewValidationError(errors.New("invalid content id"))
	ErrInvalidQuestionID = core.NewValidationError(errors.New("invalid question id"))
	ErrInvalidThumbnail  = core.NewValidationError(nil, core.FieldError{Field: "thumbnail", Error: "thumbnail must be a base64 encoded image"})
)

type (
	// Repository stores courses. Every Push* method appends in a single atomic update
	// and returns the updated course.
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// UpdateCourse replaces the provided fields; ErrNotFound if absent.
		UpdateCourse(ctx context.Context, id string, fields CourseFields) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// GetCourseSummary returns the course without its enrolled-only content.
		GetCourseSummary(ctx context.Context, id string) (Course, error)
		QueryCourseSummaries(ctx context.Context) ([]Course, error)
		// PushQuestion fails with ErrNotFound or ErrInvalidContentID.
		PushQuestion(ctx context.Context, courseID, contentID string, q Question) (Course, error)
		// PushAnswer fails with ErrNotFound, ErrInvalidContentID or ErrInvalidQuestionID.
		PushAnswer(ctx context.Context, courseID, contentID, questionID string, a Answer) (Course, error)
		// PushReview recomputes the course rating in the same update.
		PushReview(ctx context.Context, courseID string, r Review) (Course, error)
		// PushReviewReply fails with ErrNotFound or ErrReviewNotFound.
		PushReviewReply(ctx context.Context, courseID, reviewID string, r ReplyToReview) (Course, error)
	}

	Service struct {
		conf     *core.Config
		repo     Repository
		cache    core.Cache
		uploader core.Uploader
		notifier Notifier
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	conf *core.Config,
	repo Repository,
	cache core.Cache,
	uploader core.Uploader,
	notifier Notifier,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(cache, "cache"),
		vala.IsNotNil(uploader, "uploader"),
		vala.IsNotNil(notifier, "notifier"),
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Service{
		conf:     conf,
		repo:     repo,
		cache:    cache,
		uploader: uploader,
		notifier: notifier,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func newContentUnits(ncus []NewContentUnit) []ContentUnit {
	units := make([]ContentUnit, 0, len(ncus))
	for _, ncu := range ncus {
		id := ncu.ID
		if id == "" {
			id = core.NewID()
		}
		units = append(units, ContentUnit{
			ID:             id,
			Title:          core.CleanString(ncu.Title),
			Description:    ncu.Description,
			VideoURL:       ncu.VideoURL,
			VideoThumbnail: ncu.VideoThumbnail,
			VideoSection:   ncu.VideoSection,
			VideoLength:    ncu.VideoLength,
			VideoPlayer:    ncu.VideoPlayer,
			Links:          ncu.Links,
			Suggestion:     ncu.Suggestion,
			Questions:      []Question{},
		})
	}
	return units
}

// Create uploads the thumbnail, if any, and stores a new course.
func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	c := Course{
		ID:             core.NewID(),
		Name:           nc.Name,
		Description:    nc.Description,
		Price:          nc.Price,
		EstimatedPrice: nc.EstimatedPrice,
		Tags:           nc.Tags,
		Level:          nc.Level,
		DemoURL:        nc.DemoURL,
		Benefits:       nc.Benefits,
		Prerequisites:  nc.Prerequisites,
		CourseData:     newContentUnits(nc.CourseData),
		Reviews:        []Review{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if c.Benefits == nil {
		c.Benefits = []Title{}
	}
	if c.Prerequisites == nil {
		c.Prerequisites = []Title{}
	}

	if nc.Thumbnail != "" {
		asset, err := svc.uploadThumbnail(ctx, nc.Thumbnail)
		if err != nil {
			return Course{}, err
		}
		c.Thumbnail = asset
	}

	created, err := svc.repo.CreateCourse(ctx, c)
	if err != nil {
		svc.destroyThumbnail(ctx, c.Thumbnail)
		return Course{}, errors.Wrap(err, "creating course")
	}
	svc.invalidate(ctx, created.ID)
	return created, nil
}

// Update replaces the provided fields of the course.
// The previous thumbnail is destroyed only once the course references the new one.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	if !core.IsValidID(id) {
		return Course{}, ErrNotFound
	}
	orig, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course")
	}

	fields := CourseFields{
		Name:           uc.Name,
		Description:    uc.Description,
		Price:          uc.Price,
		EstimatedPrice: uc.EstimatedPrice,
		Tags:           uc.Tags,
		Level:          uc.Level,
		DemoURL:        uc.DemoURL,
		Benefits:       uc.Benefits,
		Prerequisites:  uc.Prerequisites,
		UpdatedAt:      time.Now().UTC(),
	}
	if uc.CourseData != nil {
		fields.CourseData = newContentUnits(uc.CourseData)
	}

	if uc.Thumbnail != "" {
		asset, err := svc.uploadThumbnail(ctx, uc.Thumbnail)
		if err != nil {
			return Course{}, err
		}
		fields.Thumbnail = &asset
	}

	c, err := svc.repo.UpdateCourse(ctx, id, fields)
	if err != nil {
		if fields.Thumbnail != nil {
			svc.destroyThumbnail(ctx, *fields.Thumbnail)
		}
		return Course{}, errors.Wrap(err, "updating course")
	}
	if fields.Thumbnail != nil {
		svc.destroyThumbnail(ctx, orig.Thumbnail)
	}
	svc.invalidate(ctx, id)
	return c, nil
}

func (svc *Service) uploadThumbnail(ctx context.Context, payload string) (core.Asset, error) {
	asset, err := svc.uploader.Upload(ctx, payload, thumbnailFolder)
	if err != nil {
		if errors.Is(err, core.ErrInvalidUpload) {
			return core.Asset{}, ErrInvalidThumbnail
		}
		return core.Asset{}, core.NewDownstreamError("could not upload the thumbnail", err)
	}
	return asset, nil
}

// destroyThumbnail only logs failures: a leftover file never fails the request.
func (svc *Service) destroyThumbnail(ctx context.Context, asset core.Asset) {
	if asset.PublicID == "" {
		return
	}
	if err := svc.uploader.Destroy(ctx, asset.PublicID); err != nil {
		svc.logger.Warn(fmt.Sprintf("destroying thumbnail %q: %v", asset.PublicID, err), err)
	}
}

// GetSummary returns the course without its enrolled-only content, from the cache when possible.
func (svc *Service) GetSummary(ctx context.Context, id string) (Course, error) {
	if !core.IsValidID(id) {
		return Course{}, ErrNotFound
	}

	var c Course
	if svc.fromCache(ctx, id, &c) {
		return c, nil
	}

	c, err := svc.repo.GetCourseSummary(ctx, id)
	if err != nil {
		return Course{}, errors.Wrap(err, "finding course summary")
	}
	svc.toCache(ctx, id, c)
	return c, nil
}

// QuerySummaries returns all courses without their enrolled-only content, from the cache when possible.
func (svc *Service) QuerySummaries(ctx context.Context) ([]Course, error) {
	var courses []Course
	if svc.fromCache(ctx, AllCoursesKey, &courses) {
		return courses, nil
	}

	courses, err := svc.repo.QueryCourseSummaries(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying course summaries")
	}
	if courses == nil {
		courses = []Course{}
	}
	svc.toCache(ctx, AllCoursesKey, courses)
	return courses, nil
}

// GetForCaller returns the full course to an enrolled caller.
func (svc *Service) GetForCaller(ctx context.Context, caller Caller, id string) (Course, error) {
	if !caller.IsEnrolled(id) {
		return Course{}, ErrNotEnrolled
	}
	if !core.IsValidID(id) {
		return Course{}, ErrNotFound
	}
	c, err := svc.repo.GetCourse(ctx, id)
	return c, errors.Wrap(err, "finding course")
}

// AddQuestion appends a question to the course's content unit.
func (svc *Service) AddQuestion(ctx context.Context, caller Caller, courseID string, nq NewQuestion) (Course, error) {
	if !core.IsValidID(courseID) {
		return Course{}, ErrNotFound
	}
	if !core.IsValidID(nq.ContentID) {
		return Course{}, ErrInvalidContentID
	}

	q := Question{
		ID:              core.NewID(),
		User:            caller.Author,
		Question:        nq.Question,
		QuestionReplies: []Answer{},
		CreatedAt:       time.Now().UTC(),
	}
	c, err := svc.repo.PushQuestion(ctx, courseID, nq.ContentID, q)
	if err != nil {
		return Course{}, errors.Wrap(err, "adding question")
	}
	svc.invalidate(ctx, courseID)
	return c, nil
}

// AddAnswer appends an answer to a question and lets the question's author know about it.
func (svc *Service) AddAnswer(ctx context.Context, caller Caller, courseID string, na NewAnswer) (Course, error) {
	if !core.IsValidID(courseID) {
		return Course{}, ErrNotFound
	}
	if !core.IsValidID(na.ContentID) {
		return Course{}, ErrInvalidContentID
	}
	if !core.IsValidID(na.QuestionID) {
		return Course{}, ErrInvalidQuestionID
	}

	a := Answer{
		ID:        core.NewID(),
		User:      caller.Author,
		Answer:    na.Answer,
		CreatedAt: time.Now().UTC(),
	}
	c, err := svc.repo.PushAnswer(ctx, courseID, na.ContentID, na.QuestionID, a)
	if err != nil {
		return Course{}, errors.Wrap(err, "adding answer")
	}
	svc.invalidate(ctx, courseID)

	content, _ := c.Content(na.ContentID)
	question, _ := content.Question(na.QuestionID)
	if question.User.ID == caller.ID {
		svc.notify(ctx, Notification{
			UserID:  caller.ID,
			Title:   "New Question Reply Received",
			Message: fmt.Sprintf("You have a new question reply in %s", content.Title),
		})
	} else {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: question.User.Name, Address: question.User.Email}},
			Subject:      "Question Reply",
			TemplateName: "question_reply",
			TemplateData: map[string]interface{}{
				"Name":  question.User.Name,
				"Title": content.Title,
			},
		})
	}
	return c, nil
}

// AddReview appends the enrolled caller's review and refreshes the course rating.
func (svc *Service) AddReview(ctx context.Context, caller Caller, courseID string, nr NewReview) (Course, error) {
	if !caller.IsEnrolled(courseID) {
		return Course{}, ErrNotEnrolled
	}
	if !core.IsValidID(courseID) {
		return Course{}, ErrNotFound
	}

	r := Review{
		ID:        core.NewID(),
		User:      caller.Author,
		Rating:    nr.Rating,
		Comment:   nr.Review,
		CreatedAt: time.Now().UTC(),
	}
	c, err := svc.repo.PushReview(ctx, courseID, r)
	if err != nil {
		return Course{}, errors.Wrap(err, "adding review")
	}
	svc.invalidate(ctx, courseID)

	svc.notify(ctx, Notification{
		UserID:  caller.ID,
		Title:   "New Review Received",
		Message: fmt.Sprintf("%s has given a review in %s", caller.Name, c.Name),
	})
	return c, nil
}

// AddReviewReply appends a reply to a review.
func (svc *Service) AddReviewReply(ctx context.Context, caller Caller, courseID, reviewID string, nr NewReviewReply) (Course, error) {
	if !core.IsValidID(courseID) {
		return Course{}, ErrNotFound
	}
	if !core.IsValidID(reviewID) {
		return Course{}, ErrReviewNotFound
	}

	r := ReplyToReview{
		ID:        core.NewID(),
		User:      caller.Author,
		Comment:   nr.Comment,
		CreatedAt: time.Now().UTC(),
	}
	c, err := svc.repo.PushReviewReply(ctx, courseID, reviewID, r)
	if err != nil {
		return Course{}, errors.Wrap(err, "adding review reply")
	}
	svc.invalidate(ctx, courseID)
	return c, nil
}

func (svc *Service) notify(ctx context.Context, n Notification) {
	n.Status = NotificationUnread
	n.CreatedAt = time.Now().UTC()
	if err := svc.notifier.Notify(ctx, n); err != nil {
		svc.logger.Error(fmt.Sprintf("storing notification %q: %v", n.Title, err), err)
	}
}

// fromCache decodes the cached value of key into dest. Cache failures count as misses.
func (svc *Service) fromCache(ctx context.Context, key string, dest interface{}) bool {
	val, ok, err := svc.cache.Get(ctx, key)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cache key %q: %v", key, err), err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		svc.logger.Warn(fmt.Sprintf("decoding cache key %q: %v", key, err), err)
		return false
	}
	return true
}

func (svc *Service) toCache(ctx context.Context, key string, val interface{}) {
	data, err := json.Marshal(val)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("encoding cache key %q: %v", key, err), err)
		return
	}
	if err := svc.cache.Set(ctx, key, string(data)); err != nil {
		svc.logger.Warn(fmt.Sprintf("writing cache key %q: %v", key, err), err)
	}
}

// invalidate drops the cached summaries the course appears in.
func (svc *Service) invalidate(ctx context.Context, courseID string) {
	if err := svc.cache.Delete(ctx, courseID, AllCoursesKey); err != nil {
		svc.logger.Error(fmt.Sprintf("invalidating cache for course %q: %v", courseID, err), err)
	}
}
