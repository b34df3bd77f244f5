package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "TeacherAssist/WorkPlan"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// putMetricDataAPI is the part of the CloudWatch client used here
type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics. Metrics are sent in
// background goroutines; Wait blocks until they are done.
type Client struct {
	client      putMetricDataAPI
	enabled     bool
	environment string
	wg          sync.WaitGroup
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != "production" {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{enabled: false, environment: environment}, nil
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return newClientWithAPI(cloudwatch.NewFromConfig(cfg), environment), nil
}

func newClientWithAPI(api putMetricDataAPI, environment string) *Client {
	return &Client{
		client:      api,
		enabled:     true,
		environment: environment,
	}
}

// Wait blocks until all pending metrics have been sent
func (m *Client) Wait() {
	m.wg.Wait()
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	// Determine if success or error
	metricName := "APIRequests"
	if statusCode >= httpStatusServerError {
		metricName = "APIErrors"
	}

	m.send(m.dimensions("Endpoint", endpoint),
		datum(metricName, 1, types.StandardUnitCount),
		datum("APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
	)
}

// RecordTokenUsage records LLM token usage
func (m *Client) RecordTokenUsage(_ context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	m.send(m.dimensions("Model", model),
		datum("LLMTokens/Total", float64(totalTokens), types.StandardUnitCount),
		datum("LLMTokens/Input", float64(inputTokens), types.StandardUnitCount),
		datum("LLMTokens/Output", float64(outputTokens), types.StandardUnitCount),
	)
}

// RecordGenerationOutcome records one single-item generation by outcome status
func (m *Client) RecordGenerationOutcome(_ context.Context, model, status string, duration time.Duration) {
	dims := append(m.dimensions("Model", model), types.Dimension{
		Name:  aws.String("Status"),
		Value: aws.String(status),
	})
	m.send(dims,
		datum("Generations", 1, types.StandardUnitCount),
		datum("GenerationDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
	)
}

// RecordBulkRun records the totals of a finished bulk run
func (m *Client) RecordBulkRun(_ context.Context, total, succeeded, failed int, duration time.Duration) {
	m.send(m.dimensions("Size", sizeBucket(total)),
		datum("BulkRuns", 1, types.StandardUnitCount),
		datum("BulkItems/Succeeded", float64(succeeded), types.StandardUnitCount),
		datum("BulkItems/Failed", float64(failed), types.StandardUnitCount),
		datum("BulkDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds),
	)
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{
			Name:  aws.String(name),
			Value: aws.String(value),
		},
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
}

func datum(name string, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
	}
}

// send puts the data in the background, sharing dimensions and timestamp
func (m *Client) send(dimensions []types.Dimension, data ...types.MetricDatum) {
	if !m.enabled || m.client == nil {
		return
	}

	now := time.Now()
	for i := range data {
		data[i].Dimensions = dimensions
		data[i].Timestamp = aws.Time(now)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		// Create context with timeout for CloudWatch call
		timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
		cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(namespace),
			MetricData: data,
		})
		if err != nil {
			logger.Warn("Failed to record CloudWatch metrics", logger.Fields{
				"metric": aws.ToString(data[0].MetricName),
				"error":  err.Error(),
			})
		}
	}()
}

func sizeBucket(n int) string {
	switch {
	case n <= 1:
		return "1"
	case n <= 10:
		return "2-10"
	case n <= 50:
		return "11-50"
	default:
		return "50+"
	}
}
