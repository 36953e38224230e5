package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func cloneQuestion(q course.Question) course.Question {
	q.QuestionReplies = append([]course.Answer{}, q.QuestionReplies...)
	return q
}

func cloneContentUnit(cu course.ContentUnit) course.ContentUnit {
	if cu.Links != nil {
		cu.Links = append([]course.Link{}, cu.Links...)
	}
	questions := make([]course.Question, len(cu.Questions))
	for i, q := range cu.Questions {
		questions[i] = cloneQuestion(q)
	}
	cu.Questions = questions
	return cu
}

func cloneReview(r course.Review) course.Review {
	if r.CommentReplies != nil {
		r.CommentReplies = append([]course.ReplyToReview{}, r.CommentReplies...)
	}
	return r
}

func cloneCourse(c course.Course) course.Course {
	c.Benefits = append([]course.Title{}, c.Benefits...)
	c.Prerequisites = append([]course.Title{}, c.Prerequisites...)
	data := make([]course.ContentUnit, len(c.CourseData))
	for i, cu := range c.CourseData {
		data[i] = cloneContentUnit(cu)
	}
	c.CourseData = data
	reviews := make([]course.Review, len(c.Reviews))
	for i, r := range c.Reviews {
		reviews[i] = cloneReview(r)
	}
	c.Reviews = reviews
	return c
}

// update applies fn to a copy of the stored course and stores the copy if fn succeeds.
func (repo *courseRepository) update(id string, fn func(c *course.Course) error) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	c := cloneCourse(*stored)
	if err := fn(&c); err != nil {
		return course.Course{}, err
	}
	repo.db.table[id] = &c
	return cloneCourse(c), nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := cloneCourse(c)
	repo.db.table[c.ID] = &stored
	repo.db.ordered = append(repo.db.ordered, c.ID)
	return cloneCourse(stored), nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, id string, fields course.CourseFields) (course.Course, error) {
	return repo.update(id, func(c *course.Course) error {
		*c = cloneCourse(fields.Apply(*c))
		return nil
	})
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return cloneCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseSummary(ctx context.Context, id string) (course.Course, error) {
	c, err := repo.GetCourse(ctx, id)
	if err != nil {
		return course.Course{}, err
	}
	return c.Summary(), nil
}

func (repo *courseRepository) QueryCourseSummaries(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.ordered))
	for _, id := range repo.db.ordered {
		courses = append(courses, cloneCourse(*repo.db.table[id]).Summary())
	}
	return courses, nil
}

func (repo *courseRepository) PushQuestion(_ context.Context, courseID, contentID string, q course.Question) (course.Course, error) {
	return repo.update(courseID, func(c *course.Course) error {
		for i := range c.CourseData {
			if c.CourseData[i].ID == contentID {
				c.CourseData[i].Questions = append(c.CourseData[i].Questions, q)
				return nil
			}
		}
		return course.ErrInvalidContentID
	})
}

func (repo *courseRepository) PushAnswer(_ context.Context, courseID, contentID, questionID string, a course.Answer) (course.Course, error) {
	return repo.update(courseID, func(c *course.Course) error {
		for i := range c.CourseData {
			if c.CourseData[i].ID != contentID {
				continue
			}
			questions := c.CourseData[i].Questions
			for j := range questions {
				if questions[j].ID == questionID {
					questions[j].QuestionReplies = append(questions[j].QuestionReplies, a)
					return nil
				}
			}
			return course.ErrInvalidQuestionID
		}
		return course.ErrInvalidContentID
	})
}

func (repo *courseRepository) PushReview(_ context.Context, courseID string, r course.Review) (course.Course, error) {
	return repo.update(courseID, func(c *course.Course) error {
		c.Reviews = append(c.Reviews, r)
		c.Rating = course.AverageRating(c.Reviews)
		return nil
	})
}

func (repo *courseRepository) PushReviewReply(_ context.Context, courseID, reviewID string, r course.ReplyToReview) (course.Course, error) {
	return repo.update(courseID, func(c *course.Course) error {
		for i := range c.Reviews {
			if c.Reviews[i].ID == reviewID {
				c.Reviews[i].CommentReplies = append(c.Reviews[i].CommentReplies, r)
				return nil
			}
		}
		return course.ErrReviewNotFound
	})
}
