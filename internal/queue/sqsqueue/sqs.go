// Package sqsqueue binds the queue contract to Amazon SQS.
package sqsqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"tender-writer/internal/queue"
)

// GroupIDAttribute selects the FIFO message group id as routing key.
const GroupIDAttribute = "MessageGroupId"

// API is the subset of the SQS client the queue uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, in *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// NewClient builds an SQS client from the default AWS credential chain.
// endpoint overrides the service URL (LocalStack, ElasticMQ).
func NewClient(ctx context.Context, region, endpoint string) (*sqs.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// Queue is one SQS queue used as a work source and/or dead-letter sink.
type Queue struct {
	API API
	URL string
	// RoutingAttribute names the attribute holding the routing key.
	RoutingAttribute string
}

func New(api API, url, routingAttribute string) *Queue {
	if routingAttribute == "" {
		routingAttribute = GroupIDAttribute
	}
	return &Queue{API: api, URL: url, RoutingAttribute: routingAttribute}
}

var (
	_ queue.Source         = (*Queue)(nil)
	_ queue.DeadLetterSink = (*Queue)(nil)
)

func (q *Queue) fifo() bool { return strings.HasSuffix(q.URL, ".fifo") }

func (q *Queue) Receive(ctx context.Context, opts queue.ReceiveOptions) ([]queue.Message, error) {
	limit := opts.Max
	if limit <= 0 || limit > queue.MaxBatch {
		limit = queue.MaxBatch
	}
	in := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.URL),
		MaxNumberOfMessages:   int32(limit),
		WaitTimeSeconds:       int32(opts.Wait / time.Second),
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeName("All"),
		},
	}
	if opts.Visibility > 0 {
		in.VisibilityTimeout = int32(opts.Visibility / time.Second)
	}

	out, err := q.API.ReceiveMessage(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	msgs := make([]queue.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, q.convert(m))
	}
	return msgs, nil
}

func (q *Queue) convert(m types.Message) queue.Message {
	msg := queue.Message{
		ID:           aws.ToString(m.MessageId),
		Body:         aws.ToString(m.Body),
		ReceiptToken: aws.ToString(m.ReceiptHandle),
		RoutingKey:   q.routingKey(m),
	}
	if n, err := strconv.Atoi(m.Attributes["ApproximateReceiveCount"]); err == nil {
		msg.ReceiveCount = n
	}
	if ms, err := strconv.ParseInt(m.Attributes["SentTimestamp"], 10, 64); err == nil {
		msg.SentAt = time.UnixMilli(ms).UTC()
	}
	return msg
}

func (q *Queue) routingKey(m types.Message) string {
	if q.RoutingAttribute == GroupIDAttribute {
		return m.Attributes[GroupIDAttribute]
	}
	if v, ok := m.MessageAttributes[q.RoutingAttribute]; ok {
		return aws.ToString(v.StringValue)
	}
	return ""
}

// DeleteBatch deletes in chunks of ten. Entry ids are positions within the
// chunk, mapped back to message ids on failure.
func (q *Queue) DeleteBatch(ctx context.Context, msgs []queue.Message) ([]queue.EntryFailure, error) {
	var (
		failed []queue.EntryFailure
		errs   []error
	)
	for _, chunk := range queue.Chunks(msgs, queue.MaxBatch) {
		entries := make([]types.DeleteMessageBatchRequestEntry, len(chunk))
		ids := make([]string, len(chunk))
		for i, m := range chunk {
			entries[i] = types.DeleteMessageBatchRequestEntry{
				Id:            aws.String(strconv.Itoa(i)),
				ReceiptHandle: aws.String(m.ReceiptToken),
			}
			ids[i] = m.ID
		}
		out, err := q.API.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
			QueueUrl: aws.String(q.URL),
			Entries:  entries,
		})
		if err != nil {
			err = fmt.Errorf("sqs delete batch: %w", err)
			errs = append(errs, err)
			failed = append(failed, queue.FailAll(ids, err)...)
			continue
		}
		failed = append(failed, entryFailures(out.Failed, ids)...)
	}
	return failed, errors.Join(errs...)
}

// SendBatch sends dead-letter envelopes in chunks of ten. FIFO queues get
// the routing key as group id and the source message id for deduplication.
func (q *Queue) SendBatch(ctx context.Context, letters []queue.DeadLetter) ([]queue.EntryFailure, error) {
	var (
		failed []queue.EntryFailure
		errs   []error
	)
	for _, chunk := range queue.Chunks(letters, queue.MaxBatch) {
		ids := make([]string, len(chunk))
		entries := make([]types.SendMessageBatchRequestEntry, 0, len(chunk))
		var encodeFailed []queue.EntryFailure
		for i, dl := range chunk {
			ids[i] = dl.Message.ID
			body, err := dl.Body()
			if err != nil {
				encodeFailed = append(encodeFailed, queue.EntryFailure{ID: dl.Message.ID, Err: err})
				continue
			}
			e := types.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i)),
				MessageBody: aws.String(string(body)),
			}
			if q.fifo() {
				group := dl.Message.RoutingKey
				if group == "" {
					group = "dead-letter"
				}
				e.MessageGroupId = aws.String(group)
				e.MessageDeduplicationId = aws.String(dl.Message.ID)
			}
			entries = append(entries, e)
		}
		failed = append(failed, encodeFailed...)
		if len(entries) == 0 {
			continue
		}

		out, err := q.API.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(q.URL),
			Entries:  entries,
		})
		if err != nil {
			err = fmt.Errorf("sqs send batch: %w", err)
			errs = append(errs, err)
			for _, e := range entries {
				i, _ := strconv.Atoi(aws.ToString(e.Id))
				failed = append(failed, queue.EntryFailure{ID: ids[i], Err: err})
			}
			continue
		}
		failed = append(failed, entryFailures(out.Failed, ids)...)
	}
	return failed, errors.Join(errs...)
}

func entryFailures(in []types.BatchResultErrorEntry, ids []string) []queue.EntryFailure {
	var out []queue.EntryFailure
	for _, f := range in {
		i, err := strconv.Atoi(aws.ToString(f.Id))
		if err != nil || i < 0 || i >= len(ids) {
			continue
		}
		out = append(out, queue.EntryFailure{
			ID:  ids[i],
			Err: fmt.Errorf("%s: %s", aws.ToString(f.Code), aws.ToString(f.Message)),
		})
	}
	return out
}
