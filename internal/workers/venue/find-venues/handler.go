// internal/workers/venue/find-venues/handler.go
package findvenues

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
	TaskType = "find-venues"
)

// Discoverer runs the discovery pipeline for one request.
type Discoverer interface {
	FindVenues(ctx context.Context, req models.SearchRequest) (*models.DiscoveryResult, error)
}

type Handler struct {
	config *Config
	engine Discoverer
	logger logger.Logger
}

func NewHandler(config *Config, engine Discoverer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var rawVariables map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &rawVariables); err != nil {
		h.failJob(client, job, commonerrors.NewParseError(err))
		return
	}

	if err := ValidateInput(rawVariables); err != nil {
		h.failJob(client, job, commonerrors.NewInvalidSearchInputError(err.Error()))
		return
	}

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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.engine.FindVenues(ctx, models.SearchRequest{
		PlaceQuery:   input.PlaceQuery,
		CapacityHint: input.CapacityHint,
		RequestID:    input.RequestID,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		RequestID:      result.RequestID,
		Center:         result.Center,
		Venues:         result.Venues,
		VenueCount:     len(result.Venues),
		Degraded:       result.Degraded,
		PersistWarning: result.PersistWarning,
	}, nil
}

// toStandardError normalizes a pipeline failure. The discovery stack already
// produces StandardErrors at the failure origin; anything else is an
// unclassified internal error.
func toStandardError(err error) *commonerrors.StandardError {
	var standard *commonerrors.StandardError
	if errors.As(err, &standard) {
		return standard
	}
	return commonerrors.NewInternalError(err)
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

// failJob reports a failure to the workflow engine. Retryable errors go back
// on the job with a retry count so the engine redelivers them; terminal ones
// are thrown as BPMN errors for the process model to branch on.
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
