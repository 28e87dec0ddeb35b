package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vanrent/internal/models"

	"github.com/Masterminds/squirrel"
)

var reservationColumns = []string{
	"id", "office_id", "category_id", "customer_id", "start_at", "end_at",
	"gear_type", "status", "total_price", "COALESCE(discount_code, '')", "created_at", "updated_at",
}

var activeStatuses = []string{models.StatusPending, models.StatusConfirmed}

// CreateReservationWithLock inserts r after checking, inside the same
// transaction, that no active reservation for the same office and category
// overlaps [r.StartDate, r.EndDate). Discount usage is recorded in the same
// transaction and checked against r.DiscountLimit.
func (db *DB) CreateReservationWithLock(ctx context.Context, r *models.Reservation) error {
	if !r.EndDate.After(r.StartDate) {
		return ErrInvalidInterval
	}

	return db.withBusyRetry(ctx, "create_reservation", func() error {
		return db.createReservationTx(ctx, r)
	})
}

func (db *DB) createReservationTx(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Проверка пересечений внутри транзакции
	query, args, err := db.sb.Select("COUNT(*)").
		From("reservations").
		Where(squirrel.Eq{"office_id": r.OfficeID, "category_id": r.CategoryID, "status": activeStatuses}).
		Where(squirrel.Lt{"start_at": formatTime(r.EndDate)}).
		Where(squirrel.Gt{"end_at": formatTime(r.StartDate)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: overlap check: %v", ErrBuildQuery, err)
	}

	var overlapping int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&overlapping); err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrOverlap
	}

	// 2. Создание брони
	now := time.Now().UTC().Truncate(time.Second)
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.GearType == "" {
		r.GearType = models.GearManual
	}

	var discountCode any
	if r.DiscountCode != "" {
		discountCode = r.DiscountCode
	}

	query, args, err = db.sb.Insert("reservations").
		Columns("office_id", "category_id", "customer_id", "start_at", "end_at",
			"gear_type", "status", "total_price", "discount_code", "created_at", "updated_at").
		Values(r.OfficeID, r.CategoryID, r.CustomerID, formatTime(r.StartDate), formatTime(r.EndDate),
			r.GearType, r.Status, r.TotalPrice, discountCode, formatTime(now), formatTime(now)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: insert reservation: %v", ErrBuildQuery, err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	// 3. Дополнительные опции
	if len(r.AddOns) > 0 {
		insert := db.sb.Insert("reservation_addons").Columns("reservation_id", "addon_id", "quantity", "tier_index")
		for _, a := range r.AddOns {
			var tier any
			if a.SelectedTierIndex != nil {
				tier = *a.SelectedTierIndex
			}
			insert = insert.Values(id, a.AddOnID, a.Quantity, tier)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("%w: insert add-ons: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert add-ons in tx: %w", err)
		}
	}

	// 4. Использование промокода
	if r.DiscountCode != "" {
		if r.DiscountLimit != nil {
			query, args, err = db.sb.Select("COUNT(*)").
				From("discount_usages").
				Where(squirrel.Eq{"code": strings.ToUpper(r.DiscountCode)}).
				ToSql()
			if err != nil {
				return fmt.Errorf("%w: discount usage count: %v", ErrBuildQuery, err)
			}
			var used int
			if err := tx.QueryRowContext(ctx, query, args...).Scan(&used); err != nil {
				return fmt.Errorf("failed to count discount usages in tx: %w", err)
			}
			if used >= *r.DiscountLimit {
				return ErrDiscountLimitReached
			}
		}

		query, args, err = db.sb.Insert("discount_usages").
			Columns("code", "customer_id", "reservation_id", "created_at").
			Values(strings.ToUpper(r.DiscountCode), r.CustomerID, id, formatTime(now)).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: insert discount usage: %v", ErrBuildQuery, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isConstraint(err) {
				return ErrDiscountAlreadyUsed
			}
			return fmt.Errorf("failed to record discount usage in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetReservation returns the reservation with its add-on selections.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query, args, err := db.sb.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: get reservation: %v", ErrBuildQuery, err)
	}

	r, err := scanReservation(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	if r.AddOns, err = db.reservationAddOns(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) reservationAddOns(ctx context.Context, id int64) ([]models.AddOnSelection, error) {
	query, args, err := db.sb.Select("addon_id", "quantity", "tier_index").
		From("reservation_addons").
		Where(squirrel.Eq{"reservation_id": id}).
		OrderBy("addon_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: add-ons: %v", ErrBuildQuery, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get add-ons: %w", err)
	}
	defer rows.Close()

	selections := []models.AddOnSelection{}
	for rows.Next() {
		var (
			sel  models.AddOnSelection
			tier sql.NullInt64
		)
		if err := rows.Scan(&sel.AddOnID, &sel.Quantity, &tier); err != nil {
			return nil, fmt.Errorf("failed to scan add-on: %w", err)
		}
		if tier.Valid {
			idx := int(tier.Int64)
			sel.SelectedTierIndex = &idx
		}
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}

// ListActiveReservations returns pending and confirmed reservations of an
// office overlapping [from, to). An empty categoryID matches every category.
func (db *DB) ListActiveReservations(ctx context.Context, officeID, categoryID string, from, to time.Time) ([]*models.Reservation, error) {
	builder := db.sb.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Eq{"office_id": officeID, "status": activeStatuses}).
		Where(squirrel.Lt{"start_at": formatTime(to)}).
		Where(squirrel.Gt{"end_at": formatTime(from)}).
		OrderBy("start_at ASC")
	if categoryID != "" {
		builder = builder.Where(squirrel.Eq{"category_id": categoryID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: list reservations: %v", ErrBuildQuery, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// ReservedSlots returns the busy periods touching date (in loc) in the
// reserved-slots shapes: same-day reservations carry only times, the rest
// carry dates too.
func (db *DB) ReservedSlots(ctx context.Context, officeID, categoryID string, date time.Time, loc *time.Location) ([]models.ReservedSlot, error) {
	y, m, d := date.In(loc).Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)

	reservations, err := db.ListActiveReservations(ctx, officeID, categoryID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	slots := make([]models.ReservedSlot, 0, len(reservations))
	for _, r := range reservations {
		start, end := r.StartDate.In(loc), r.EndDate.In(loc)
		slot := models.ReservedSlot{
			StartTime: start.Format(models.TimeFormat),
			EndTime:   end.Format(models.TimeFormat),
		}
		if start.Format(models.DateFormat) != end.Format(models.DateFormat) {
			sameDay := false
			slot.StartDate = start.Format(models.DateFormat)
			slot.EndDate = end.Format(models.DateFormat)
			slot.IsSameDay = &sameDay
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// UpdateReservationStatus moves a reservation along its lifecycle.
func (db *DB) UpdateReservationStatus(ctx context.Context, id int64, status string) error {
	from, ok := allowedFrom[status]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	query, args, err := db.sb.Update("reservations").
		Set("status", status).
		Set("updated_at", formatTime(time.Now())).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: update status: %v", ErrBuildQuery, err)
	}

	return db.withBusyRetry(ctx, "update_status", func() error {
		result, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows > 0 {
			return nil
		}
		if _, err := db.GetReservation(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: to %s", ErrInvalidTransition, status)
	})
}

var allowedFrom = map[string][]string{
	models.StatusConfirmed: {models.StatusPending},
	models.StatusCanceled:  {models.StatusPending, models.StatusConfirmed},
	models.StatusCompleted: {models.StatusConfirmed},
}

// DiscountUsage returns how often code was redeemed and by whom.
func (db *DB) DiscountUsage(ctx context.Context, code string) (int, []string, error) {
	query, args, err := db.sb.Select("customer_id").
		From("discount_usages").
		Where(squirrel.Eq{"code": strings.ToUpper(code)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: discount usage: %v", ErrBuildQuery, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get discount usage: %w", err)
	}
	defer rows.Close()

	var customers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, nil, err
		}
		customers = append(customers, id)
	}
	return len(customers), customers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r                    models.Reservation
		start, end           string
		createdAt, updatedAt string
	)
	err := row.Scan(&r.ID, &r.OfficeID, &r.CategoryID, &r.CustomerID, &start, &end,
		&r.GearType, &r.Status, &r.TotalPrice, &r.DiscountCode, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&r.StartDate, start}, {&r.EndDate, end}, {&r.CreatedAt, createdAt}, {&r.UpdatedAt, updatedAt}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, fmt.Errorf("failed to parse time %s: %w", f.src, err)
		}
	}
	return &r, nil
}

