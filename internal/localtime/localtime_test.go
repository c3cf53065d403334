package localtime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunarcal/internal/apperror"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "10:00:00", want: TimeOfDay{10, 0, 0}},
		{in: "23:59:59", want: TimeOfDay{23, 59, 59}},
		{in: "07:30", want: TimeOfDay{7, 30, 0}},
		{in: " 08:15:05 ", want: TimeOfDay{8, 15, 5}},
		{in: "24:00:00", wantErr: true},
		{in: "10:60", wantErr: true},
		{in: "10", wantErr: true},
		{in: "ab:cd", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05:00", TimeOfDay{Hour: 9, Minute: 5}.String())
}

func TestToUTC(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		tod  TimeOfDay
		zone string
		want time.Time
	}{
		{
			name: "fixed offset zone",
			date: date(2020, time.January, 25),
			tod:  TimeOfDay{Hour: 10},
			zone: "Asia/Shanghai",
			want: time.Date(2020, time.January, 25, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "UTC",
			date: date(2020, time.January, 25),
			tod:  TimeOfDay{Hour: 10, Minute: 30},
			zone: "UTC",
			want: time.Date(2020, time.January, 25, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "New York winter uses EST",
			date: date(2024, time.January, 15),
			tod:  TimeOfDay{Hour: 10},
			zone: "America/New_York",
			want: time.Date(2024, time.January, 15, 15, 0, 0, 0, time.UTC),
		},
		{
			name: "New York summer uses EDT",
			date: date(2024, time.July, 15),
			tod:  TimeOfDay{Hour: 10},
			zone: "America/New_York",
			want: time.Date(2024, time.July, 15, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "day after spring-forward uses new offset",
			date: date(2024, time.March, 11),
			tod:  TimeOfDay{Hour: 10},
			zone: "America/New_York",
			want: time.Date(2024, time.March, 11, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "time of day of the input date is ignored",
			date: time.Date(2020, time.January, 25, 23, 59, 0, 0, time.UTC),
			tod:  TimeOfDay{Hour: 10},
			zone: "Asia/Shanghai",
			want: time.Date(2020, time.January, 25, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUTC(tt.date, tt.tod, tt.zone)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestToUTCInvalidZone(t *testing.T) {
	for _, zone := range []string{"Mars/Olympus_Mons", "", "Local"} {
		t.Run(zone, func(t *testing.T) {
			_, err := ToUTC(date(2020, time.January, 1), TimeOfDay{}, zone)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrInvalidTimeZone))
		})
	}
}
