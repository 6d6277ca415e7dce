package utils

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/mmdatafocus/stripboard_backend/config"
	"github.com/go-playground/validator/v10"
)

// check if id exists, using ctx's project_id in WHERE, returns RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, projectId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, projectId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, projectId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, projectId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, projectId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewValidationError("duplicate " + column)
	}
	return nil
}

// count records, using WHERE project_id = ? AND $condition
// project_id can be blank for internal tooling
func ResourceCountWhere[T any](ctx context.Context, projectId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if projectId != "" {
		dbCtx.Where("project_id = ?", projectId)
	}
	dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

const dateLayout = "2006-01-02"

// DateRange is a closed [Start, End] day interval.
type DateRange struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required"`
}

var validate = validator.New()

// ParseDateRange validates and parses "YYYY-MM-DD" bounds.
// Malformed or inverted ranges are validation errors, rejected before any read.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return DateRange{}, NewValidationError("start date must be YYYY-MM-DD")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return DateRange{}, NewValidationError("end date must be YYYY-MM-DD")
	}
	r := DateRange{Start: s, End: e}
	if err := validate.Struct(r); err != nil {
		return DateRange{}, NewValidationError("start and end dates are required")
	}
	if e.Before(s) {
		return DateRange{}, NewValidationError("end date is before start date")
	}
	return r, nil
}

func (r DateRange) Contains(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !d.Before(r.Start) && !d.After(r.End)
}
