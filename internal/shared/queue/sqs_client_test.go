package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	fake := &fakeSQS{}
	client := NewSQSClientWith(fake, "https://sqs.us-east-1.amazonaws.com/123/reconcile")

	msg := Message{Kind: KindDanglingRecord, ImageID: 7, ObjectKey: "k.png", Version: 1}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected one message, got %d", len(fake.inputs))
	}
	got, err := DecodeMessage([]byte(aws.ToString(fake.inputs[0].MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got != msg {
		t.Fatalf("body mismatch: got %+v want %+v", got, msg)
	}
	if kind := fake.inputs[0].MessageAttributes["kind"]; aws.ToString(kind.StringValue) != KindDanglingRecord {
		t.Fatalf("expected kind attribute, got %+v", kind)
	}
}

func TestSQSClientSendError(t *testing.T) {
	fake := &fakeSQS{err: errors.New("throttled")}
	client := NewSQSClientWith(fake, "q")
	if err := client.Send(context.Background(), Message{Kind: KindOrphanedObject}); err == nil {
		t.Fatalf("expected error")
	}
}
