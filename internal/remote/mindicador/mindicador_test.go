package mindicador

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDollar(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "ok",
			body: `{"version":"1.7.0","uf":{"valor":37000.1},"dolar":{"codigo":"dolar","valor":950.25},"euro":{"valor":1020}}`,
			want: "950.25",
		},
		{
			name:    "missing dollar",
			body:    `{"uf":{"valor":37000.1}}`,
			wantErr: ErrNoDollar,
		},
		{
			name:    "zero dollar",
			body:    `{"dolar":{"valor":0}}`,
			wantErr: ErrNoDollar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDollar([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, err := parseDollar([]byte(`[`))
	require.Error(t, err)
}

func TestDollarRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"dolar":{"valor":941.5}}`))
	}))
	defer srv.Close()

	rate, err := NewClient(srv.URL, time.Second, nil).DollarRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "941.5", rate.String())
}

func TestDollarRate_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, nil).DollarRate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
