package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"gallery-backend/internal/bootstrap"
	"gallery-backend/internal/shared/config"
	"gallery-backend/internal/shared/metrics"
	"gallery-backend/internal/shared/telemetry"
	"gallery-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	resolver workerproc.Resolver
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg, bootstrap.RequireCatalog())
	if err != nil {
		initErr = err
		return
	}
	resolver = built.Reconciler
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("bootstrap.failed", map[string]any{"err": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleEvent(ctx, resolver, event), nil
}

// handleEvent reports retryable failures back to SQS; unrecoverable messages
// are logged and acknowledged.
func handleEvent(ctx context.Context, r workerproc.Resolver, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncReconcileMessage("received")
		err := workerproc.HandleMessage(ctx, r, record.Body)
		switch {
		case err == nil:
			metrics.IncReconcileMessage("completed")
		case workerproc.Unrecoverable(err):
			telemetry.Error("worker.reconcile.dropped", map[string]any{"sqs_message_id": record.MessageId, "err": err.Error()})
			metrics.IncReconcileMessage("dropped")
		default:
			telemetry.Error("worker.reconcile.failed", map[string]any{"sqs_message_id": record.MessageId, "err": err.Error()})
			metrics.IncReconcileMessage("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
