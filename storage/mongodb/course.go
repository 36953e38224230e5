package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
)

// summaryProjection leaves out the enrolled-only content.
var summaryProjection = bson.D{
	{Key: "course_data.video_url", Value: 0},
	{Key: "course_data.suggestion", Value: 0},
	{Key: "course_data.questions", Value: 0},
	{Key: "course_data.links", Value: 0},
}

type (
	authorDoc struct {
		ID    string `bson:"id"`
		Name  string `bson:"name"`
		Email string `bson:"email"`
	}

	answerDoc struct {
		ID        primitive.ObjectID `bson:"_id"`
		User      authorDoc          `bson:"user"`
		Answer    string             `bson:"answer"`
		CreatedAt time.Time          `bson:"created_at"`
	}

	questionDoc struct {
		ID              primitive.ObjectID `bson:"_id"`
		User            authorDoc          `bson:"user"`
		Question        string             `bson:"question"`
		QuestionReplies []answerDoc        `bson:"question_replies"`
		CreatedAt       time.Time          `bson:"created_at"`
	}

	contentDoc struct {
		ID             primitive.ObjectID `bson:"_id"`
		Title          string             `bson:"title"`
		Description    string             `bson:"description"`
		VideoURL       string             `bson:"video_url,omitempty"`
		VideoThumbnail string             `bson:"video_thumbnail"`
		VideoSection   string             `bson:"video_section"`
		VideoLength    int                `bson:"video_length"`
		VideoPlayer    string             `bson:"video_player"`
		Links          []course.Link      `bson:"links,omitempty"`
		Suggestion     string             `bson:"suggestion,omitempty"`
		Questions      []questionDoc      `bson:"questions,omitempty"`
	}

	replyDoc struct {
		ID        primitive.ObjectID `bson:"_id"`
		User      authorDoc          `bson:"user"`
		Comment   string             `bson:"comment"`
		CreatedAt time.Time          `bson:"created_at"`
	}

	reviewDoc struct {
		ID             primitive.ObjectID `bson:"_id"`
		User           authorDoc          `bson:"user"`
		Rating         float64            `bson:"rating"`
		Comment        string             `bson:"comment"`
		CommentReplies []replyDoc         `bson:"comment_replies,omitempty"`
		CreatedAt      time.Time          `bson:"created_at"`
	}

	courseDoc struct {
		ID             primitive.ObjectID `bson:"_id"`
		Name           string             `bson:"name"`
		Description    string             `bson:"description"`
		Price          float64            `bson:"price"`
		EstimatedPrice float64            `bson:"estimated_price"`
		Thumbnail      core.Asset         `bson:"thumbnail"`
		Tags           string             `bson:"tags"`
		Level          string             `bson:"level"`
		DemoURL        string             `bson:"demo_url"`
		Benefits       []course.Title     `bson:"benefits"`
		Prerequisites  []course.Title     `bson:"prerequisites"`
		CourseData     []contentDoc       `bson:"course_data"`
		Reviews        []reviewDoc        `bson:"reviews"`
		Rating         float64            `bson:"rating"`
		Purchased      int                `bson:"purchased"`
		CreatedAt      time.Time          `bson:"created_at"`
		UpdatedAt      time.Time          `bson:"updated_at"`
	}
)

// oid converts a validated id; malformed ids map to the nil ObjectID which matches nothing.
func oid(id string) primitive.ObjectID {
	o, _ := primitive.ObjectIDFromHex(id)
	return o
}

func toAuthorDoc(a course.Author) authorDoc { return authorDoc{ID: a.ID, Name: a.Name, Email: a.Email} }

func (d authorDoc) author() course.Author { return course.Author{ID: d.ID, Name: d.Name, Email: d.Email} }

func toAnswerDoc(a course.Answer) answerDoc {
	return answerDoc{ID: oid(a.ID), User: toAuthorDoc(a.User), Answer: a.Answer, CreatedAt: a.CreatedAt}
}

func toQuestionDoc(q course.Question) questionDoc {
	replies := make([]answerDoc, 0, len(q.QuestionReplies))
	for _, a := range q.QuestionReplies {
		replies = append(replies, toAnswerDoc(a))
	}
	return questionDoc{ID: oid(q.ID), User: toAuthorDoc(q.User), Question: q.Question, QuestionReplies: replies, CreatedAt: q.CreatedAt}
}

func toContentDoc(cu course.ContentUnit) contentDoc {
	questions := make([]questionDoc, 0, len(cu.Questions))
	for _, q := range cu.Questions {
		questions = append(questions, toQuestionDoc(q))
	}
	return contentDoc{
		ID:             oid(cu.ID),
		Title:          cu.Title,
		Description:    cu.Description,
		VideoURL:       cu.VideoURL,
		VideoThumbnail: cu.VideoThumbnail,
		VideoSection:   cu.VideoSection,
		VideoLength:    cu.VideoLength,
		VideoPlayer:    cu.VideoPlayer,
		Links:          cu.Links,
		Suggestion:     cu.Suggestion,
		Questions:      questions,
	}
}

func toContentDocs(units []course.ContentUnit) []contentDoc {
	docs := make([]contentDoc, 0, len(units))
	for _, cu := range units {
		docs = append(docs, toContentDoc(cu))
	}
	return docs
}

func toReplyDoc(r course.ReplyToReview) replyDoc {
	return replyDoc{ID: oid(r.ID), User: toAuthorDoc(r.User), Comment: r.Comment, CreatedAt: r.CreatedAt}
}

func toReviewDoc(r course.Review) reviewDoc {
	var replies []replyDoc
	for _, rr := range r.CommentReplies {
		replies = append(replies, toReplyDoc(rr))
	}
	return reviewDoc{
		ID:             oid(r.ID),
		User:           toAuthorDoc(r.User),
		Rating:         r.Rating,
		Comment:        r.Comment,
		CommentReplies: replies,
		CreatedAt:      r.CreatedAt,
	}
}

func toCourseDoc(c course.Course) courseDoc {
	reviews := make([]reviewDoc, 0, len(c.Reviews))
	for _, r := range c.Reviews {
		reviews = append(reviews, toReviewDoc(r))
	}
	return courseDoc{
		ID:             oid(c.ID),
		Name:           c.Name,
		Description:    c.Description,
		Price:          c.Price,
		EstimatedPrice: c.EstimatedPrice,
		Thumbnail:      c.Thumbnail,
		Tags:           c.Tags,
		Level:          c.Level,
		DemoURL:        c.DemoURL,
		Benefits:       nonNilTitles(c.Benefits),
		Prerequisites:  nonNilTitles(c.Prerequisites),
		CourseData:     toContentDocs(c.CourseData),
		Reviews:        reviews,
		Rating:         c.Rating,
		Purchased:      c.Purchased,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func nonNilTitles(titles []course.Title) []course.Title {
	if titles == nil {
		return []course.Title{}
	}
	return titles
}

func (d courseDoc) course() course.Course {
	c := course.Course{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		EstimatedPrice: d.EstimatedPrice,
		Thumbnail:      d.Thumbnail,
		Tags:           d.Tags,
		Level:          d.Level,
		DemoURL:        d.DemoURL,
		Benefits:       nonNilTitles(d.Benefits),
		Prerequisites:  nonNilTitles(d.Prerequisites),
		CourseData:     make([]course.ContentUnit, 0, len(d.CourseData)),
		Reviews:        make([]course.Review, 0, len(d.Reviews)),
		Rating:         d.Rating,
		Purchased:      d.Purchased,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
	for _, cd := range d.CourseData {
		cu := course.ContentUnit{
			ID:             cd.ID.Hex(),
			Title:          cd.Title,
			Description:    cd.Description,
			VideoURL:       cd.VideoURL,
			VideoThumbnail: cd.VideoThumbnail,
			VideoSection:   cd.VideoSection,
			VideoLength:    cd.VideoLength,
			VideoPlayer:    cd.VideoPlayer,
			Links:          cd.Links,
			Suggestion:     cd.Suggestion,
		}
		if cd.Questions != nil {
			cu.Questions = make([]course.Question, 0, len(cd.Questions))
		}
		for _, qd := range cd.Questions {
			q := course.Question{
				ID:              qd.ID.Hex(),
				User:            qd.User.author(),
				Question:        qd.Question,
				QuestionReplies: make([]course.Answer, 0, len(qd.QuestionReplies)),
				CreatedAt:       qd.CreatedAt.UTC(),
			}
			for _, ad := range qd.QuestionReplies {
				q.QuestionReplies = append(q.QuestionReplies, course.Answer{
					ID:        ad.ID.Hex(),
					User:      ad.User.author(),
					Answer:    ad.Answer,
					CreatedAt: ad.CreatedAt.UTC(),
				})
			}
			cu.Questions = append(cu.Questions, q)
		}
		c.CourseData = append(c.CourseData, cu)
	}
	for _, rd := range d.Reviews {
		r := course.Review{
			ID:        rd.ID.Hex(),
			User:      rd.User.author(),
			Rating:    rd.Rating,
			Comment:   rd.Comment,
			CreatedAt: rd.CreatedAt.UTC(),
		}
		for _, rrd := range rd.CommentReplies {
			r.CommentReplies = append(r.CommentReplies, course.ReplyToReview{
				ID:        rrd.ID.Hex(),
				User:      rrd.User.author(),
				Comment:   rrd.Comment,
				CreatedAt: rrd.CreatedAt.UTC(),
			})
		}
		c.Reviews = append(c.Reviews, r)
	}
	return c
}

type courseRepository struct {
	coll *mongo.Collection
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *mongo.Database) *courseRepository {
	return &courseRepository{coll: db.Collection(coursesCollection)}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// decodeOne decodes a single result, mapping a miss to notFound.
func decodeOne(res *mongo.SingleResult, notFound error) (course.Course, error) {
	var doc courseDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return course.Course{}, notFound
		}
		return course.Course{}, err
	}
	return doc.course(), nil
}

// exists reports whether a course matches filter.
func (repo *courseRepository) exists(ctx context.Context, filter bson.D) (bool, error) {
	n, err := repo.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting courses")
	}
	return n > 0, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	doc := toCourseDoc(c)
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return doc.course(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, id string, fields course.CourseFields) (course.Course, error) {
	set := bson.D{{Key: "updated_at", Value: fields.UpdatedAt}}
	add := func(key string, val interface{}) { set = append(set, bson.E{Key: key, Value: val}) }

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Description != nil {
		add("description", *fields.Description)
	}
	if fields.Price != nil {
		add("price", *fields.Price)
	}
	if fields.EstimatedPrice != nil {
		add("estimated_price", *fields.EstimatedPrice)
	}
	if fields.Thumbnail != nil {
		add("thumbnail", *fields.Thumbnail)
	}
	if fields.Tags != nil {
		add("tags", *fields.Tags)
	}
	if fields.Level != nil {
		add("level", *fields.Level)
	}
	if fields.DemoURL != nil {
		add("demo_url", *fields.DemoURL)
	}
	if fields.Benefits != nil {
		add("benefits", fields.Benefits)
	}
	if fields.Prerequisites != nil {
		add("prerequisites", fields.Prerequisites)
	}
	if fields.CourseData != nil {
		add("course_data", toContentDocs(fields.CourseData))
	}

	res := repo.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid(id)}}, bson.D{{Key: "$set", Value: set}}, afterUpdate())
	c, err := decodeOne(res, course.ErrNotFound)
	return c, errors.Wrap(err, "updating course")
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	res := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid(id)}})
	c, err := decodeOne(res, course.ErrNotFound)
	return c, errors.Wrap(err, "finding course")
}

func (repo *courseRepository) GetCourseSummary(ctx context.Context, id string) (course.Course, error) {
	res := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid(id)}}, options.FindOne().SetProjection(summaryProjection))
	c, err := decodeOne(res, course.ErrNotFound)
	return c, errors.Wrap(err, "finding course summary")
}

func (repo *courseRepository) QueryCourseSummaries(ctx context.Context) ([]course.Course, error) {
	opts := options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := repo.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	var docs []courseDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding courses")
	}
	courses := make([]course.Course, 0, len(docs))
	for _, doc := range docs {
		courses = append(courses, doc.course())
	}
	return courses, nil
}

func (repo *courseRepository) PushQuestion(ctx context.Context, courseID, contentID string, q course.Question) (course.Course, error) {
	filter := bson.D{
		{Key: "_id", Value: oid(courseID)},
		{Key: "course_data._id", Value: oid(contentID)},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "course_data.$.questions", Value: toQuestionDoc(q)}}}}

	c, err := decodeOne(repo.coll.FindOneAndUpdate(ctx, filter, update, afterUpdate()), course.ErrInvalidContentID)
	if errors.Cause(err) == course.ErrInvalidContentID {
		if found, cErr := repo.exists(ctx, bson.D{{Key: "_id", Value: oid(courseID)}}); cErr != nil {
			return course.Course{}, cErr
		} else if !found {
			return course.Course{}, course.ErrNotFound
		}
	}
	return c, errors.Wrap(err, "pushing question")
}

func (repo *courseRepository) PushAnswer(ctx context.Context, courseID, contentID, questionID string, a course.Answer) (course.Course, error) {
	filter := bson.D{
		{Key: "_id", Value: oid(courseID)},
		{Key: "course_data", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
			{Key: "_id", Value: oid(contentID)},
			{Key: "questions._id", Value: oid(questionID)},
		}}}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{
		{Key: "course_data.$[c].questions.$[q].question_replies", Value: toAnswerDoc(a)},
	}}}
	opts := afterUpdate().SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
		bson.D{{Key: "c._id", Value: oid(contentID)}},
		bson.D{{Key: "q._id", Value: oid(questionID)}},
	}})

	c, err := decodeOne(repo.coll.FindOneAndUpdate(ctx, filter, update, opts), course.ErrInvalidQuestionID)
	if errors.Cause(err) == course.ErrInvalidQuestionID {
		found, cErr := repo.exists(ctx, bson.D{{Key: "_id", Value: oid(courseID)}})
		if cErr != nil {
			return course.Course{}, cErr
		}
		if !found {
			return course.Course{}, course.ErrNotFound
		}
		found, cErr = repo.exists(ctx, bson.D{{Key: "_id", Value: oid(courseID)}, {Key: "course_data._id", Value: oid(contentID)}})
		if cErr != nil {
			return course.Course{}, cErr
		}
		if !found {
			return course.Course{}, course.ErrInvalidContentID
		}
	}
	return c, errors.Wrap(err, "pushing answer")
}

func (repo *courseRepository) PushReview(ctx context.Context, courseID string, r course.Review) (course.Course, error) {
	// appending and averaging in one pipeline keeps the rating consistent with concurrent reviews
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
			bson.A{bson.D{{Key: "$literal", Value: toReviewDoc(r)}}},
		}}}}}}},
		{{Key: "$set", Value: bson.D{{Key: "rating", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}}}}},
	}

	res := repo.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid(courseID)}}, update, afterUpdate())
	c, err := decodeOne(res, course.ErrNotFound)
	return c, errors.Wrap(err, "pushing review")
}

func (repo *courseRepository) PushReviewReply(ctx context.Context, courseID, reviewID string, r course.ReplyToReview) (course.Course, error) {
	filter := bson.D{
		{Key: "_id", Value: oid(courseID)},
		{Key: "reviews._id", Value: oid(reviewID)},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "reviews.$.comment_replies", Value: toReplyDoc(r)}}}}

	c, err := decodeOne(repo.coll.FindOneAndUpdate(ctx, filter, update, afterUpdate()), course.ErrReviewNotFound)
	if errors.Cause(err) == course.ErrReviewNotFound {
		if found, cErr := repo.exists(ctx, bson.D{{Key: "_id", Value: oid(courseID)}}); cErr != nil {
			return course.Course{}, cErr
		} else if !found {
			return course.Course{}, course.ErrNotFound
		}
	}
	return c, errors.Wrap(err, "pushing review reply")
}
