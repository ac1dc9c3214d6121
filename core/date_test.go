package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "valid", in: "2021-03-15", want: NewDate(2021, time.March, 15)},
		{name: "not a date", in: "lol", wantErr: true},
		{name: "wrong layout", in: "15/03/2021", wantErr: true},
		{name: "datetime rejected", in: "2021-03-15T10:00:00Z", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !got.Equal(tt.want) {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	tests := []struct {
		name string
		in   time.Time
		want Date
	}{
		{name: "truncates the time", in: time.Date(2021, time.March, 15, 23, 59, 59, 0, time.UTC), want: NewDate(2021, time.March, 15)},
		{name: "converts to UTC first", in: time.Date(2021, time.March, 15, 22, 0, 0, 0, loc), want: NewDate(2021, time.March, 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateOf(tt.in); !got.Equal(tt.want) {
				t.Errorf("DateOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	day := NewDate(2021, time.March, 15)

	data, err := json.Marshal(day)
	assert.NoError(t, err)
	assert.Equal(t, `"2021-03-15"`, string(data))

	var got Date
	assert.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, got.Equal(day))

	// null leaves the date untouched
	got = day
	assert.NoError(t, json.Unmarshal([]byte("null"), &got))
	assert.True(t, got.Equal(day))

	assert.Error(t, json.Unmarshal([]byte(`"lol"`), &got))
}

func TestDateScan(t *testing.T) {
	day := NewDate(2021, time.March, 15)
	tests := []struct {
		name    string
		src     interface{}
		want    Date
		wantErr bool
	}{
		{name: "time.Time", src: time.Date(2021, time.March, 15, 10, 30, 0, 0, time.UTC), want: day},
		{name: "string", src: "2021-03-15", want: day},
		{name: "bytes", src: []byte("2021-03-15"), want: day},
		{name: "nil", src: nil, want: Date{}},
		{name: "unsupported type", src: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Date
			err := got.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !got.Equal(tt.want) {
				t.Errorf("Scan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateValue(t *testing.T) {
	val, err := NewDate(2021, time.March, 15).Value()
	assert.NoError(t, err)
	assert.Equal(t, "2021-03-15", val)
}
