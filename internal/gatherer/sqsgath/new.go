package sqsgath

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// NewSqsGatherer loads the default AWS configuration and returns a
// gatherer that sends every session event to the queue.
func NewSqsGatherer(ctx context.Context, sessionUuid string, queueUrl string) (*sqsGatherer, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newWithClient(sqs.NewFromConfig(cfg), sessionUuid, queueUrl), nil
}

func newWithClient(client sender, sessionUuid string, queueUrl string) *sqsGatherer {
	return &sqsGatherer{
		client:      client,
		queueUrl:    queueUrl,
		sessionUuid: sessionUuid,
	}
}
