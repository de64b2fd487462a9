package binding

import (
	"bytes"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRequest(query string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/?"+query, nil)
}

func TestBasicTypes(t *testing.T) {
	type params struct {
		Name   string  `query:"name"`
		Width  int     `query:"w"`
		Q      float64 `query:"q"`
		Strict bool    `query:"strict"`
		Page   uint    `query:"page"`
	}

	tests := []struct {
		name      string
		query     string
		want      params
		wantError bool
	}{
		{
			name:  "all fields set",
			query: "name=cat&w=250&q=0.8&strict=true&page=1",
			want:  params{Name: "cat", Width: 250, Q: 0.8, Strict: true, Page: 1},
		},
		{
			name:  "partial fields",
			query: "w=30",
			want:  params{Width: 30},
		},
		{name: "invalid integer", query: "w=wide", wantError: true},
		{name: "invalid boolean", query: "strict=maybe", wantError: true},
		{name: "negative unsigned", query: "page=-1", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got params
			err := Query(createRequest(tt.query), &got)
			if tt.wantError {
				var bindErr *BindError
				require.True(t, stderrors.As(err, &bindErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultValues(t *testing.T) {
	type params struct {
		Format string `query:"format" default:"jpg"`
		Width  int    `query:"w" default:"100"`
	}

	var got params
	require.NoError(t, Query(createRequest(""), &got))
	assert.Equal(t, params{Format: "jpg", Width: 100}, got)

	got = params{}
	require.NoError(t, Query(createRequest("format=png"), &got))
	assert.Equal(t, params{Format: "png", Width: 100}, got)
}

func TestPointerFields(t *testing.T) {
	type params struct {
		Q *float64 `query:"q"`
	}

	var got params
	require.NoError(t, Query(createRequest(""), &got))
	assert.Nil(t, got.Q)

	require.NoError(t, Query(createRequest("q=0.5"), &got))
	require.NotNil(t, got.Q)
	assert.Equal(t, 0.5, *got.Q)
}

func TestArrayStrategies(t *testing.T) {
	type params struct {
		Presets []string `query:"presets"`
	}

	tests := []struct {
		name     string
		strategy ArrayStrategy
		query    string
		want     []string
	}{
		{"both with comma", ArrayStrategyBoth, "presets=small,%20large", []string{"small", "large"}},
		{"both with repeats", ArrayStrategyBoth, "presets=small&presets=large", []string{"small", "large"}},
		{"comma skips empty items", ArrayStrategyComma, "presets=small,,large,", []string{"small", "large"}},
		{"multiple keeps commas", ArrayStrategyMultiple, "presets=a,b", []string{"a,b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewQueryParser()
			parser.SetArrayStrategy(tt.strategy)
			var got params
			require.NoError(t, QueryWithParser(createRequest(tt.query), &got, parser))
			assert.Equal(t, tt.want, got.Presets)
		})
	}
}

func TestNestedStruct(t *testing.T) {
	type crop struct {
		X int `query:"x"`
		Y int `query:"y"`
	}
	type params struct {
		Crop crop `query:"crop"`
	}

	var got params
	require.NoError(t, Query(createRequest("crop.x=3&crop.y=4"), &got))
	assert.Equal(t, crop{X: 3, Y: 4}, got.Crop)
}

type upper string

func (u *upper) UnmarshalQuery(value string) error {
	if value == "" {
		return stderrors.New("empty")
	}
	*u = upper(strings.ToUpper(value))
	return nil
}

func TestQueryUnmarshaler(t *testing.T) {
	type params struct {
		Mode upper `query:"mode"`
	}

	var got params
	require.NoError(t, QueryWithParser(createRequest("mode=crop"), &got, NewQueryParser()))
	assert.Equal(t, upper("CROP"), got.Mode)

	err := NewQueryParser().Parse(url.Values{"mode": {""}}, &got)
	var bindErr *BindError
	require.True(t, stderrors.As(err, &bindErr))
	assert.Equal(t, "Mode", bindErr.Field)
}

func TestValidation(t *testing.T) {
	type params struct {
		Width int      `query:"w" validate:"gte=0"`
		Q     *float64 `query:"q" validate:"omitempty,gte=0,lte=1"`
	}

	var got params
	err := Query(createRequest("w=-1&q=2"), &got)
	var ve ValidationErrors
	require.True(t, stderrors.As(err, &ve), "got %v", err)
	require.Len(t, ve, 2)
	assert.Equal(t, "Width", ve[0].Field)
	assert.Equal(t, "must be greater than or equal to 0", ve[0].Message)
	assert.Equal(t, "must be less than or equal to 1", ve[1].Message)
	assert.Contains(t, ve.Error(), "validation failed")
}

func TestParseRejectsNonStruct(t *testing.T) {
	var n int
	assert.Error(t, NewQueryParser().Parse(url.Values{}, &n))
	assert.Error(t, NewQueryParser().Parse(url.Values{}, nil))
}

func TestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("pixels")))
	body, err := Body(req)
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), body)

	_, err = Body(httptest.NewRequest(http.MethodPost, "/", nil))
	var bindErr *BindError
	assert.True(t, stderrors.As(err, &bindErr))

	rec := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, 64)))
	req.Body = http.MaxBytesReader(rec, req.Body, 16)
	_, err = Body(req)
	var tooLarge *http.MaxBytesError
	require.True(t, stderrors.As(err, &tooLarge))
	assert.EqualValues(t, 16, tooLarge.Limit)
}
