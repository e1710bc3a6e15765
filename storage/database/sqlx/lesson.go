package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/lesson"
)

const lessonTable = "lesson"

var lessonColumns = []string{
	"id", "owner_id", "series_id",
	"student_name", "parent_name", "student_contact", "parent_contact",
	"course", "description", "lesson_number",
	"start_time", "duration_minutes", "frequency", "completed",
	"created_at", "updated_at",
}

type lessonRow struct {
	ID              string      `db:"id"`
	OwnerID         string      `db:"owner_id"`
	SeriesID        string      `db:"series_id"`
	StudentName     string      `db:"student_name"`
	ParentName      string      `db:"parent_name"`
	StudentContact  string      `db:"student_contact"`
	ParentContact   string      `db:"parent_contact"`
	Course          string      `db:"course"`
	Description     null.String `db:"description"`
	LessonNumber    int         `db:"lesson_number"`
	StartTime       dbTime      `db:"start_time"`
	DurationMinutes int         `db:"duration_minutes"`
	Frequency       int         `db:"frequency"`
	Completed       bool        `db:"completed"`
	CreatedAt       dbTime      `db:"created_at"`
	UpdatedAt       dbTime      `db:"updated_at"`
}

func (r lessonRow) unboil() lesson.Lesson {
	return lesson.Lesson{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		SeriesID:        r.SeriesID,
		StudentName:     r.StudentName,
		ParentName:      r.ParentName,
		StudentContact:  r.StudentContact,
		ParentContact:   r.ParentContact,
		Course:          r.Course,
		Description:     r.Description.String,
		LessonNumber:    r.LessonNumber,
		StartTime:       r.StartTime.Time,
		DurationMinutes: r.DurationMinutes,
		Frequency:       r.Frequency,
		Completed:       r.Completed,
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

type lessonRepository struct {
	exec core.DBExecutor
	dialect
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *sqlx.DB) *lessonRepository {
	return &lessonRepository{exec: db, dialect: newDialect(db)}
}

// values follows lessonColumns
func (repo lessonRepository) values(l lesson.Lesson) []interface{} {
	return []interface{}{
		l.ID,
		l.OwnerID,
		l.SeriesID,
		l.StudentName,
		l.ParentName,
		l.StudentContact,
		l.ParentContact,
		l.Course,
		null.NewString(l.Description, l.Description != ""),
		l.LessonNumber,
		repo.timeArg(l.StartTime),
		l.DurationMinutes,
		l.Frequency,
		l.Completed,
		repo.timeArg(l.CreatedAt),
		repo.timeArg(l.UpdatedAt),
	}
}

// validID tells whether id can identify a row; postgres rejects malformed UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo lessonRepository) run(ctx context.Context, b sq.Sqlizer, op string, exec []core.DBExecutor) (int, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return 0, core.NewStorageError(err, "building query: "+op)
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, args...)
	if err != nil {
		return 0, core.NewStorageError(err, op)
	}
	return rowsAffected(res, op)
}

func (repo lessonRepository) CreateLessons(ctx context.Context, lessons []lesson.Lesson, exec ...core.DBExecutor) error {
	if len(lessons) == 0 {
		return nil
	}
	// a single statement: all occurrences are stored or none
	b := repo.sb.Insert(lessonTable).Columns(lessonColumns...)
	for _, l := range lessons {
		b = b.Values(repo.values(l)...)
	}
	_, err := repo.run(ctx, b, "inserting lessons", exec)
	return err
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter lesson.QueryFilter, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	if !validID(filter.OwnerID) {
		return []lesson.Lesson{}, nil
	}
	b := repo.sb.Select(lessonColumns...).From(lessonTable).Where(sq.Eq{"owner_id": filter.OwnerID})
	if filter.SeriesID != "" {
		if !validID(filter.SeriesID) {
			return []lesson.Lesson{}, nil
		}
		b = b.Where(sq.Eq{"series_id": filter.SeriesID})
	}
	if !filter.From.IsZero() {
		b = b.Where(sq.GtOrEq{"start_time": repo.timeArg(filter.From)})
	}
	if !filter.To.IsZero() {
		b = b.Where(sq.LtOrEq{"start_time": repo.timeArg(filter.To)})
	}
	if filter.Completed != nil {
		b = b.Where(sq.Eq{"completed": *filter.Completed})
	}
	b = b.OrderBy("start_time ASC", "lesson_number ASC", "id ASC")

	q, args, err := b.ToSql()
	if err != nil {
		return nil, core.NewStorageError(err, "building lessons query")
	}
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.NewStorageError(err, "querying lessons")
	}
	defer func() { _ = rows.Close() }()

	var dest []lessonRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, core.NewStorageError(err, "scanning lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(dest))
	for _, r := range dest {
		lessons = append(lessons, r.unboil())
	}
	return lessons, nil
}

func (repo lessonRepository) GetLesson(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	if !validID(ownerID) || !validID(id) {
		return lesson.Lesson{}, lesson.ErrNotFound
	}

	q, args, err := repo.sb.Select(lessonColumns...).From(lessonTable).
		Where(sq.Eq{"id": id, "owner_id": ownerID}).
		Limit(1).
		ToSql()
	if err != nil {
		return lesson.Lesson{}, core.NewStorageError(err, "building lesson query")
	}
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return lesson.Lesson{}, core.NewStorageError(err, "querying lesson")
	}
	defer func() { _ = rows.Close() }()

	var dest []lessonRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return lesson.Lesson{}, core.NewStorageError(err, "scanning lesson")
	}
	if len(dest) == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return dest[0].unboil(), nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, l lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	if !validID(l.OwnerID) || !validID(l.ID) {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	l.StartTime = core.DBTime(l.StartTime)
	l.UpdatedAt = core.DBTime(l.UpdatedAt)

	vals := repo.values(l)
	b := repo.sb.Update(lessonTable).Where(sq.Eq{"id": l.ID, "owner_id": l.OwnerID})
	for i, col := range lessonColumns {
		switch col {
		case "id", "owner_id", "series_id", "frequency", "created_at":
			continue
		}
		b = b.Set(col, vals[i])
	}

	n, err := repo.run(ctx, b, "updating lesson", exec)
	if err != nil {
		return lesson.Lesson{}, err
	}
	if n == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return l, nil
}

func (repo lessonRepository) DeleteLessons(ctx context.Context, filter lesson.DeleteFilter, exec ...core.DBExecutor) (int, error) {
	if !validID(filter.OwnerID) {
		return 0, nil
	}
	b := repo.sb.Delete(lessonTable).Where(sq.Eq{"owner_id": filter.OwnerID})
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return 0, nil
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.SeriesID != "":
		if !validID(filter.SeriesID) {
			return 0, nil
		}
		b = b.Where(sq.Eq{"series_id": filter.SeriesID})
		if !filter.From.IsZero() {
			b = b.Where(sq.GtOrEq{"start_time": repo.timeArg(filter.From)})
		}
	default:
		// never wipe all the lessons of an owner
		return 0, nil
	}
	return repo.run(ctx, b, "deleting lessons", exec)
}

func (repo lessonRepository) MarkCompleted(ctx context.Context, ownerID, id string, exec ...core.DBExecutor) (int, error) {
	if !validID(ownerID) || !validID(id) {
		return 0, nil
	}
	b := repo.sb.Update(lessonTable).
		Set("completed", true).
		Where(sq.Eq{"id": id, "owner_id": ownerID})
	return repo.run(ctx, b, "completing lesson", exec)
}

func (repo lessonRepository) ShiftLessonNumbers(ctx context.Context, target lesson.Lesson, delta int, exec ...core.DBExecutor) (int, error) {
	if !validID(target.OwnerID) || !validID(target.SeriesID) {
		return 0, nil
	}
	b := repo.sb.Update(lessonTable).
		Set("lesson_number", sq.Expr("lesson_number + ?", delta)).
		Where(sq.Eq{"owner_id": target.OwnerID, "series_id": target.SeriesID}).
		Where(sq.Gt{"start_time": repo.timeArg(target.StartTime)})
	return repo.run(ctx, b, "shifting lesson numbers", exec)
}
