package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacesSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "restaurant", q.Get("type"))
		assert.Equal(t, "1000", q.Get("radius"))
		assert.Equal(t, "secret-key", q.Get("key"))
		assert.Contains(t, q.Get("location"), "25.03")

		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"name": "阿宏麵店", "vicinity": "信義路 100 號", "rating": 4.5, "opening_hours": {"open_now": true}},
				{"name": "小吃部", "vicinity": "信義路 102 號", "rating": 0}
			]
		}`))
	}))
	defer ts.Close()

	h := NewPlacesSearch(LocationConfig{APIKey: "secret-key", EndpointURL: ts.URL})

	result, err := h.Search(context.Background(), 25.03, 121.56, PlaceRestaurant)
	require.NoError(t, err)
	assert.Contains(t, result, "附近的 餐廳")
	assert.Contains(t, result, "1. 阿宏麵店（⭐ 4.5） 營業中")
	assert.Contains(t, result, "信義路 100 號")
	assert.Contains(t, result, "2. 小吃部")
	assert.NotContains(t, result, "小吃部（⭐")
}

func TestPlacesSearchCapsResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"name": "A"}, {"name": "B"}, {"name": "C"}
			]
		}`))
	}))
	defer ts.Close()

	h := NewPlacesSearch(LocationConfig{EndpointURL: ts.URL, MaxResults: 2})

	result, err := h.Search(context.Background(), 0, 0, PlaceParking)
	require.NoError(t, err)
	assert.Contains(t, result, "2. B")
	assert.NotContains(t, result, "3. C")
}

func TestPlacesSearchZeroResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer ts.Close()

	h := NewPlacesSearch(LocationConfig{EndpointURL: ts.URL})

	result, err := h.Search(context.Background(), 25.03, 121.56, PlaceGasStation)
	require.NoError(t, err)
	assert.Equal(t, "附近找不到符合的地點。", result)
}

func TestPlacesSearchAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED"}`))
	}))
	defer ts.Close()

	h := NewPlacesSearch(LocationConfig{EndpointURL: ts.URL})

	_, err := h.Search(context.Background(), 25.03, 121.56, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestPlaceTypeLabel(t *testing.T) {
	assert.Equal(t, "加油站", placeTypeLabel(PlaceGasStation))
	assert.Equal(t, "停車場", placeTypeLabel(PlaceParking))
	assert.Equal(t, "餐廳", placeTypeLabel(PlaceRestaurant))
	assert.Equal(t, "museum", placeTypeLabel("museum"))
}
