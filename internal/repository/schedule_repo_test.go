package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"zone_thermostat/internal/models"
)

func newScheduleMock(t *testing.T) (*ScheduleSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewScheduleSQLite(db)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return repo, mock, cleanup
}

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "enabled", "days_of_week", "time_of_day",
		"target_heat_c", "target_cool_c", "mode", "created_at", "updated_at",
	})
}

func TestScheduleSQLite_CreateEncodesDaysAndNulls(t *testing.T) {
	repo, mock, cleanup := newScheduleMock(t)
	defer cleanup()

	heat := 21.5
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO schedules`)).
		WithArgs("morning", true, "1,2,3,4,5", "06:30",
			heat, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), models.ScheduleEntry{
		Name:        "morning",
		Enabled:     true,
		DaysOfWeek:  []int{1, 2, 3, 4, 5},
		TimeOfDay:   "06:30",
		TargetHeatC: &heat,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
}

func TestScheduleSQLite_DueAtDecodesOptionalFields(t *testing.T) {
	repo, mock, cleanup := newScheduleMock(t)
	defer cleanup()

	now := time.Now().UTC()
	rows := scheduleRows().
		AddRow(1, "morning", true, "1,2,3,4,5", "06:30", 21.5, nil, nil, now, now).
		AddRow(2, "summer", true, "0,6", "06:30", nil, 25.0, "cool", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM schedules WHERE enabled=1 AND time_of_day=?`)).
		WithArgs("06:30").
		WillReturnRows(rows)

	entries, err := repo.DueAt(context.Background(), "06:30")
	if err != nil {
		t.Fatalf("DueAt: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.TargetHeatC == nil || *first.TargetHeatC != 21.5 {
		t.Fatalf("first heat target = %v, want 21.5", first.TargetHeatC)
	}
	if first.TargetCoolC != nil || first.Mode != nil {
		t.Fatalf("first entry nulls not preserved: %+v", first)
	}
	if len(first.DaysOfWeek) != 5 || first.DaysOfWeek[0] != 1 {
		t.Fatalf("first days = %v, want [1 2 3 4 5]", first.DaysOfWeek)
	}

	second := entries[1]
	if second.Mode == nil || *second.Mode != models.ModeCool {
		t.Fatalf("second mode = %v, want cool", second.Mode)
	}
	if second.TargetCoolC == nil || *second.TargetCoolC != 25.0 {
		t.Fatalf("second cool target = %v, want 25.0", second.TargetCoolC)
	}
}

func TestScheduleSQLite_Count(t *testing.T) {
	repo, mock, cleanup := newScheduleMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM schedules`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
}

func TestScheduleSQLite_Delete(t *testing.T) {
	repo, mock, cleanup := newScheduleMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM schedules WHERE id=?`)).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), 5); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestDaysCSVRoundTrip(t *testing.T) {
	cases := [][]int{nil, {0}, {1, 3, 5}, {0, 1, 2, 3, 4, 5, 6}}
	for _, days := range cases {
		got := daysFromCSV(daysToCSV(days))
		if len(got) != len(days) {
			t.Fatalf("round trip of %v gave %v", days, got)
		}
		for i := range days {
			if got[i] != days[i] {
				t.Fatalf("round trip of %v gave %v", days, got)
			}
		}
	}
}
