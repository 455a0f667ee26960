package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-go/internal/cache"
	"catalog-go/internal/enrichment"
	"catalog-go/internal/upstream"
)

func newCatalog(t *testing.T, swapiHandler, enrichHandler http.Handler) *CatalogService {
	t.Helper()

	swapiServer := httptest.NewServer(swapiHandler)
	t.Cleanup(swapiServer.Close)

	c := cache.New(5*time.Minute, 0)
	swapiClient := upstream.NewClient(upstream.Options{
		BaseURL: swapiServer.URL,
		Timeout: 2 * time.Second,
	}, c)

	var enrichClient *enrichment.Client
	if enrichHandler != nil {
		enrichServer := httptest.NewServer(enrichHandler)
		t.Cleanup(enrichServer.Close)
		enrichClient = enrichment.NewClient(enrichServer.URL, "", 2*time.Second, c)
	}

	return NewCatalogService(swapiClient, enrichClient, nil)
}

func TestGetCharacterMergesEnrichment(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/1/", r.URL.Path)
		w.Write([]byte(`{"name":"Luke Skywalker","birth_year":"19BBY","url":"https://swapi.dev/api/people/1/"}`))
	})
	enrich := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/1", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"resource_type":"people","resource_id":1,"nickname":"The Farm Boy","description":"Jedi Knight","image_key":"people/1.webp"}}`))
	})

	svc := newCatalog(t, swapi, enrich)
	detail, err := svc.GetCharacter(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, detail.ID)
	assert.Equal(t, "Luke Skywalker", detail.Name)
	assert.Equal(t, "The Farm Boy", detail.Nickname)
	assert.Equal(t, "Jedi Knight", detail.Description)
	assert.Equal(t, "/api/images/people/1.webp", detail.ImageURL)
}

func TestGetCharacterWithoutEnrichmentRecord(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Luke Skywalker","url":"https://swapi.dev/api/people/1/"}`))
	})
	enrich := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	svc := newCatalog(t, swapi, enrich)
	detail, err := svc.GetCharacter(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Luke Skywalker", detail.Name)
	assert.Empty(t, detail.Nickname)
	assert.Empty(t, detail.ImageURL)
}

func TestGetCharacterEnrichmentFailureDegrades(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Luke Skywalker"}`))
	})
	enrich := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	})

	svc := newCatalog(t, swapi, enrich)
	detail, err := svc.GetCharacter(context.Background(), 1)
	require.NoError(t, err, "enrichment failures must not fail the request")
	assert.Equal(t, "Luke Skywalker", detail.Name)
	assert.Empty(t, detail.Nickname)
}

func TestGetCharacterNoEnrichmentConfigured(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Luke Skywalker"}`))
	})

	svc := newCatalog(t, swapi, nil)
	detail, err := svc.GetCharacter(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Luke Skywalker", detail.Name)
}

func TestGetCharacterNotFound(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	svc := newCatalog(t, swapi, nil)
	_, err := svc.GetCharacter(context.Background(), 999)
	assert.True(t, upstream.IsNotFound(err))
}

func TestListPlanets(t *testing.T) {
	swapi := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/planets/", r.URL.Path)
		w.Write([]byte(`{"count":60,"next":"n","previous":null,"results":[
			{"name":"Tatooine","url":"https://swapi.dev/api/planets/1/"},
			{"name":"Alderaan","url":"https://swapi.dev/api/planets/2/"}]}`))
	})

	svc := newCatalog(t, swapi, nil)
	list, err := svc.ListPlanets(context.Background(), 1, "")
	require.NoError(t, err)

	assert.Equal(t, 60, list.Count)
	assert.Equal(t, 1, list.Page)
	assert.True(t, list.HasNext)
	assert.False(t, list.HasPrevious)
	require.Len(t, list.Results, 2)
	assert.Equal(t, 1, list.Results[0].ID)
	assert.Equal(t, "Tatooine", list.Results[0].Name)
	assert.Equal(t, 2, list.Results[1].ID)
}

func TestIDFromURL(t *testing.T) {
	assert.Equal(t, 1, idFromURL("https://swapi.dev/api/people/1/"))
	assert.Equal(t, 42, idFromURL("https://swapi.dev/api/planets/42"))
	assert.Equal(t, 0, idFromURL("not-a-url"))
	assert.Equal(t, 0, idFromURL(""))
}
