package carbon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jgoulah/gridmix/internal/retry"
	"github.com/jgoulah/gridmix/pkg/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const juneFirstBody = `{
  "data": [
    {
      "from": "2022-06-01T00:00Z",
      "to": "2022-06-01T00:30Z",
      "generationmix": [
        {"fuel": "gas", "perc": 40},
        {"fuel": "wind", "perc": 60}
      ]
    },
    {
      "from": "2022-06-01T00:30Z",
      "to": "2022-06-01T01:00Z",
      "generationmix": [
        {"fuel": "gas", "perc": 35},
        {"fuel": "wind", "perc": 55},
        {"fuel": "solar", "perc": 10}
      ]
    }
  ]
}`

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClient_FetchRange(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(juneFirstBody))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(srv.URL, logger)

	intervals, err := client.FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))
	require.NoError(t, err)

	assert.Equal(t, "/generation/2022-06-01T00:00Z/2022-06-01T23:59Z", gotPath)
	assert.Empty(t, gotQuery)

	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), intervals[0].From)
	assert.Equal(t, time.Date(2022, 6, 1, 0, 30, 0, 0, time.UTC), intervals[0].To)
	assert.Equal(t, []models.FuelShare{{Fuel: "gas", Perc: 40}, {Fuel: "wind", Perc: 60}}, intervals[0].GenerationMix)
	assert.Len(t, intervals[1].GenerationMix, 3)
}

type countingTransport struct {
	calls atomic.Int32
}

func (ct *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ct.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestClient_TimeoutKeepsCustomHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(juneFirstBody))
	}))
	defer srv.Close()

	transport := &countingTransport{}
	hc := &http.Client{Transport: transport}
	logger, _ := test.NewNullLogger()
	client := NewClient(srv.URL, logger, WithHTTPClient(hc), WithTimeout(5*time.Second))

	_, err := client.FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Zero(t, hc.Timeout, "caller's client should not be modified")
}

func TestClient_RangeURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	client := NewClient("https://example.test/", logger)

	assert.Equal(t,
		"https://example.test/generation/2022-02-01T00:00Z/2022-02-28T23:59Z",
		client.RangeURL(day("2022-02-01"), day("2022-02-28")))

	assert.True(t, strings.HasPrefix(NewClient("", logger).RangeURL(day("2022-01-01"), day("2022-01-01")), DefaultBaseURL))
}

func TestClient_FetchRange_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		checkErrs func(t *testing.T, err error)
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   "boom",
			checkErrs: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
				assert.Equal(t, "boom", statusErr.Body)
			},
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"400 Bad Request"}}`,
			checkErrs: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.False(t, statusErr.Temporary())
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `{"data": [`,
			checkErrs: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
			},
		},
		{
			name:   "missing data key",
			status: http.StatusOK,
			body:   `{"result": []}`,
			checkErrs: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.Contains(t, err.Error(), "missing data")
			},
		},
		{
			name:   "bad timestamp",
			status: http.StatusOK,
			body:   `{"data": [{"from": "yesterday", "to": "2022-06-01T00:30Z", "generationmix": []}]}`,
			checkErrs: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedResponse)
				assert.Contains(t, err.Error(), "data[0].from")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			logger, _ := test.NewNullLogger()
			_, err := NewClient(srv.URL, logger).FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))
			require.Error(t, err)
			tt.checkErrs(t, err)
		})
	}
}

func TestClient_FetchRange_NoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	_, err := NewClient(srv.URL, logger).FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_FetchRange_RetriesTemporaryFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(juneFirstBody))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(srv.URL, logger, WithRetry(retry.Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}))

	intervals, err := client.FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))
	require.NoError(t, err)
	assert.Len(t, intervals, 2)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_FetchRange_DoesNotRetryMalformed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(srv.URL, logger, WithRetry(retry.Config{MaxAttempts: 4, BaseDelay: time.Millisecond}))

	_, err := client.FetchRange(context.Background(), day("2022-06-01"), day("2022-06-01"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2022-12-31T23:30Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 12, 31, 23, 30, 0, 0, time.UTC), got)

	got, err = parseTime("2022-12-31T23:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 12, 31, 23, 30, 0, 0, time.UTC), got)

	_, err = parseTime("31/12/2022")
	assert.Error(t, err)
}
