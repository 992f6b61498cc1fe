package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openrestream/restreamd/internal/api/models"
	"github.com/openrestream/restreamd/internal/streams"
	"github.com/openrestream/restreamd/internal/uploads"
)

// registerStreamRoutes registers stream CRUD, lifecycle, stats, and
// upload endpoints.
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Streams",
		Description: "Get all configured streams",
		Tags:        []string{"streams"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.StreamListResponse, error) {
		list, err := s.service.ListStreams(ctx)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		apiStreams := make([]models.StreamData, len(list))
		for i, st := range list {
			apiStreams[i] = s.domainToAPIStream(st)
		}
		return &models.StreamListResponse{
			Body: models.StreamListData{
				Streams: apiStreams,
				Count:   len(apiStreams),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "create-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams",
		Summary:     "Create Stream",
		Description: "Create a new stream record",
		Tags:        []string{"streams"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Body models.CreateStreamBody
	}) (*models.StreamResponse, error) {
		created, err := s.service.CreateStream(ctx, streams.CreateParams{
			Name:        input.Body.Name,
			StreamKey:   input.Body.StreamKey,
			Resolution:  input.Body.Resolution,
			Orientation: input.Body.Orientation,
			Loop:        input.Body.Loop,
			Volume:      input.Body.Volume,
			Muted:       input.Body.Muted,
		})
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.StreamResponse{Body: s.domainToAPIStream(created)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/streams/{id}",
		Summary:     "Get Stream",
		Description: "Get one stream record",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id" example:"7" doc:"Stream identifier"`
	}) (*models.StreamResponse, error) {
		st, err := s.service.GetStream(ctx, input.ID)
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.StreamResponse{Body: s.domainToAPIStream(st)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-stream",
		Method:      http.MethodPatch,
		Path:        "/api/streams/{id}",
		Summary:     "Update Stream",
		Description: "Update stream settings; absent fields keep their stored values",
		Tags:        []string{"streams"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID   int64 `path:"id" example:"7" doc:"Stream identifier"`
		Body models.UpdateStreamBody
	}) (*models.StreamResponse, error) {
		updated, err := s.service.UpdateStream(ctx, input.ID, streams.UpdateParams{
			Name:        input.Body.Name,
			StreamKey:   input.Body.StreamKey,
			Resolution:  input.Body.Resolution,
			Orientation: input.Body.Orientation,
			Loop:        input.Body.Loop,
			Volume:      input.Body.Volume,
			Muted:       input.Body.Muted,
		})
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.StreamResponse{Body: s.domainToAPIStream(updated)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-stream",
		Method:      http.MethodDelete,
		Path:        "/api/streams/{id}",
		Summary:     "Delete Stream",
		Description: "Stop the encoder if running, reclaim the video, and remove the record",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id" example:"7" doc:"Stream identifier"`
	}) (*struct{}, error) {
		if err := s.service.DeleteStream(ctx, input.ID); err != nil {
			return nil, s.mapStreamError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams/{id}/start",
		Summary:     "Start Stream",
		Description: "Spawn the encoder for this stream; restarts if already running",
		Tags:        []string{"streams"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id" example:"7" doc:"Stream identifier"`
	}) (*models.StartStopResponse, error) {
		if err := s.service.StartStream(ctx, input.ID); err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.StartStopResponse{
			Body: models.StartStopData{
				StreamID: input.ID,
				IsActive: true,
				Message:  "stream started",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-stream",
		Method:      http.MethodPost,
		Path:        "/api/streams/{id}/stop",
		Summary:     "Stop Stream",
		Description: "Terminate the encoder; returns after teardown completes",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id" example:"7" doc:"Stream identifier"`
	}) (*models.StartStopResponse, error) {
		stopped, err := s.service.StopStream(ctx, input.ID)
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		message := "stream stopped"
		if !stopped {
			message = "stream was not running"
		}
		return &models.StartStopResponse{
			Body: models.StartStopData{
				StreamID: input.ID,
				IsActive: false,
				Message:  message,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream-stats",
		Method:      http.MethodGet,
		Path:        "/api/streams/{id}/stats",
		Summary:     "Get Stream Stats",
		Description: "Get current telemetry for one stream",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id" example:"7" doc:"Stream identifier"`
	}) (*models.StatsResponse, error) {
		stats, err := s.service.GetStats(ctx, input.ID)
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.StatsResponse{
			Body: models.StatsData{
				StreamID:      input.ID,
				Viewers:       stats.Viewers,
				UptimeSeconds: stats.UptimeSeconds,
				LatencyMs:     stats.LatencyMs,
				Status:        string(stats.Status),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "upload-stream-video",
		Method:      http.MethodPost,
		Path:        "/api/streams/{id}/video",
		Summary:     "Upload Video",
		Description: "Upload a video file and attach it to the stream, replacing any previous file",
		Tags:        []string{"streams"},
		Errors:      []int{400, 401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		ID      int64 `path:"id" example:"7" doc:"Stream identifier"`
		RawBody huma.MultipartFormFiles[videoUploadForm]
	}) (*models.UploadResponse, error) {
		form := input.RawBody.Data()
		if !form.File.IsSet {
			return nil, huma.Error400BadRequest("missing file field")
		}
		if !uploads.IsVideoFile(form.File.Filename) {
			return nil, huma.Error400BadRequest(fmt.Sprintf("unsupported file type: %s", form.File.Filename))
		}

		// Stream the part straight to disk; uploads run to gigabytes.
		path, size, err := s.uploads.Save(form.File.Filename, form.File)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to store upload", err)
		}

		if _, err := s.service.AttachVideo(ctx, input.ID, path); err != nil {
			// The orphaned file is reclaimed by the deferred-delete window.
			s.uploads.DeferDelete(path, 0)
			return nil, s.mapStreamError(err)
		}

		return &models.UploadResponse{
			Body: models.UploadData{
				StreamID: input.ID,
				Filename: path,
				Bytes:    size,
			},
		}, nil
	})
}

// videoUploadForm is the multipart payload of the upload endpoint.
type videoUploadForm struct {
	File huma.FormFile `form:"file" contentType:"video/mp4,video/quicktime,video/x-matroska,video/webm,video/x-flv,video/x-msvideo" required:"true"`
}

func (s *Server) domainToAPIStream(st streams.Stream) models.StreamData {
	return models.StreamData{
		ID:          st.ID,
		Name:        st.Name,
		StreamKey:   st.StreamKey,
		HasVideo:    st.VideoPath != "",
		IsActive:    st.IsActive,
		Resolution:  st.Resolution,
		Orientation: st.Orientation,
		Loop:        st.Loop,
		Volume:      st.Volume,
		Muted:       st.Muted,
		CreatedAt:   st.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   st.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// mapStreamError maps domain sentinels to HTTP errors.
func (s *Server) mapStreamError(err error) error {
	switch {
	case errors.Is(err, streams.ErrStreamNotFound):
		return huma.Error404NotFound("stream not found", err)
	case errors.Is(err, streams.ErrNoVideo):
		return huma.Error400BadRequest("no video attached to stream", err)
	case errors.Is(err, streams.ErrNoStreamKey):
		return huma.Error400BadRequest("stream key not configured", err)
	case errors.Is(err, streams.ErrSourceMissing):
		return huma.Error409Conflict("source video missing on disk", err)
	default:
		return huma.Error500InternalServerError("internal server error", err)
	}
}
