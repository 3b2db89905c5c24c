// internal/workers/venue/list-suggestions/handler.go
package listsuggestions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"venuescout/internal/common/logger"
	"venuescout/internal/models"

	commonerrors "venuescout/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "list-suggestions"
)

// SuggestionLister reads stored suggestion batches for a request.
type SuggestionLister interface {
	ListByRequest(ctx context.Context, requestID string, limit int) ([]models.Suggestion, error)
}

type Handler struct {
	config *Config
	repo   SuggestionLister
	logger logger.Logger
}

func NewHandler(config *Config, repo SuggestionLister, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		repo:   repo,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, commonerrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// toStandardError normalizes a failure from the repository or validation.
func toStandardError(err error) *commonerrors.StandardError {
	var standard *commonerrors.StandardError
	if errors.As(err, &standard) {
		return standard
	}
	return commonerrors.NewInternalError(err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.RequestID == "" {
		return nil, commonerrors.NewInvalidSearchInputError("requestId must not be empty")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}

	suggestions, err := h.repo.ListByRequest(ctx, input.RequestID, limit)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []models.Suggestion{}
	}

	return &Output{
		RequestID:   input.RequestID,
		Suggestions: suggestions,
		Count:       len(suggestions),
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

// failJob mirrors the find-venues worker: retryable failures go back on the
// job with retries and error variables, terminal ones become BPMN errors.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, jobErr error) {
	bpmnErr := commonerrors.ConvertToBPMNError(toStandardError(jobErr))

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    bpmnErr.Code,
		"errorMessage": bpmnErr.Message,
		"retryable":    bpmnErr.Retryable,
		"retries":      bpmnErr.Retries,
	})

	if bpmnErr.Retryable {
		failCmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(int32(bpmnErr.Retries)).
			ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

		var finalCmd interface {
			Send(context.Context) (*pb.FailJobResponse, error)
		}
		varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables())
		if varErr != nil {
			h.logger.Error("failed to set error variables, sending without them", map[string]interface{}{
				"jobKey": job.Key,
				"error":  varErr.Error(),
			})
			finalCmd = failCmd
		} else {
			finalCmd = varCmd
		}

		if _, sendErr := finalCmd.Send(context.Background()); sendErr != nil {
			h.logger.Error("failed to send fail job command", map[string]interface{}{
				"error": sendErr,
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
