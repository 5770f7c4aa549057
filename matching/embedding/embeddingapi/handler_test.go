package embeddingapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/TryAwesome/CVibe-sub002/matching/embedding"
	"github.com/TryAwesome/CVibe-sub002/matching/embedding/embeddingsrv"
	"github.com/TryAwesome/CVibe-sub002/matching/job"
	"github.com/TryAwesome/CVibe-sub002/matching/matchingtest"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fiber.App, *matchingtest.Auth, *matchingtest.RecordingListener) {
	t.Helper()
	jobs := matchingtest.NewJobRepository()
	jobs.Put(&job.Job{ID: "j1", Title: "Engineer", IsActive: true, FirstSeenAt: time.Now()})
	listener := &matchingtest.RecordingListener{}
	svc := embeddingsrv.NewEmbeddingService(matchingtest.NewEmbeddingRepository(jobs), jobs, nil, 3, 10)
	svc.SetListener(listener)

	a := matchingtest.NewAuth(t)
	app := matchingtest.NewApp()
	RegisterRoutes(app, NewHandlers(svc), a.Middleware)
	return app, a, listener
}

func TestPutEmbedding(t *testing.T) {
	app, a, listener := setup(t)
	svc := a.ServiceHeader()

	var resp embedding.EmbeddingResponse
	status := matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/j1/embedding", svc, embedding.PutEmbeddingRequest{Vector: []float32{1, 0, 0}, Model: "m1"}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, resp.Dimension)

	var body map[string]any
	status = matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/j1/embedding", svc, embedding.PutEmbeddingRequest{Vector: []float32{0, 1, 0}, Model: "m2"}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EMBEDDING.ALREADY_EXISTS", body["code"])

	status = matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/j1/embedding?upgrade=true", svc, embedding.PutEmbeddingRequest{Vector: []float32{0, 1, 0}, Model: "m2"}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "m2", resp.Model)

	require.Equal(t, http.StatusOK, matchingtest.Do(t, app, http.MethodGet, "/api/crawler/jobs/j1/embedding", svc, nil, &resp))
	assert.Equal(t, "m2", resp.Model)
	assert.Len(t, listener.Jobs, 2)
}

func TestPutEmbedding_Invalid(t *testing.T) {
	app, a, _ := setup(t)
	svc := a.ServiceHeader()

	var body map[string]any
	status := matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/j1/embedding", svc, embedding.PutEmbeddingRequest{Vector: []float32{1, 0}}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMBEDDING.INVALID_DIMENSION", body["code"])

	status = matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/missing/embedding", svc, embedding.PutEmbeddingRequest{Vector: []float32{1, 0, 0}}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = matchingtest.Do(t, app, http.MethodPut, "/api/crawler/jobs/j1/embedding", a.UserHeader(t, "alice"), embedding.PutEmbeddingRequest{Vector: []float32{1, 0, 0}}, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
