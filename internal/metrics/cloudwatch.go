package metrics

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

const (
	namespace                = "AIMusic/Pipeline"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// putMetricAPI is the slice of the CloudWatch client the metrics client uses.
type putMetricAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      putMetricAPI
	enabled     bool
	environment string
}

// NewClient creates a new CloudWatch metrics client
func NewClient(ctx context.Context, environment string) (*Client, error) {
	// Only enable in production
	if environment != "production" {
		log.Printf("📊 CloudWatch Metrics: DISABLED (environment: %s)", environment)
		return &Client{
			enabled:     false,
			environment: environment,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load AWS config for CloudWatch: %v", err)
		return &Client{enabled: false}, nil
	}

	client := cloudwatch.NewFromConfig(cfg)
	log.Printf("📊 CloudWatch Metrics: ✅ ENABLED (namespace: %s)", namespace)

	return &Client{
		client:      client,
		enabled:     true,
		environment: environment,
	}, nil
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}

		dimensions := m.dimensions("Endpoint", endpoint)
		if err := m.putMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}

		latencyMs := float64(duration.Milliseconds())
		if err := m.putMetric(ctx, "APILatency", latencyMs, types.StandardUnitMilliseconds, dimensions); err != nil {
			log.Printf("Failed to record APILatency metric: %v", err)
		}
	}()
}

// RecordSubmission counts an accepted command.
func (m *Client) RecordSubmission(commandType models.CommandType) {
	m.count("CommandsSubmitted", "CommandType", string(commandType))
}

// RecordQueueRejection counts a submission refused because the work queue was full.
func (m *Client) RecordQueueRejection() {
	m.count("QueueRejections", "", "")
}

// RecordCacheLookup counts generation cache hits and misses.
func (m *Client) RecordCacheLookup(hit bool) {
	name := "CacheMisses"
	if hit {
		name = "CacheHits"
	}
	m.count(name, "", "")
}

// RecordCommandFinished records the terminal outcome of a command and, for commands that
// reached the backend, how long generation took.
func (m *Client) RecordCommandFinished(commandType models.CommandType, outcome string, duration time.Duration) {
	if m == nil || !m.enabled {
		return
	}

	go func() {
		ctx := context.Background()
		dimensions := append(m.dimensions("CommandType", string(commandType)), types.Dimension{
			Name:  aws.String("Outcome"),
			Value: aws.String(outcome),
		})

		if err := m.putMetric(ctx, "CommandsFinished", 1, types.StandardUnitCount, dimensions); err != nil {
			log.Printf("Failed to record CommandsFinished metric: %v", err)
		}
		if duration > 0 {
			durationMs := float64(duration.Milliseconds())
			if err := m.putMetric(ctx, "GenerationDuration", durationMs, types.StandardUnitMilliseconds, dimensions); err != nil {
				log.Printf("Failed to record GenerationDuration metric: %v", err)
			}
		}
	}()
}

func (m *Client) count(metricName, dimension, value string) {
	if m == nil || !m.enabled {
		return
	}

	go func() {
		if err := m.putMetric(context.Background(), metricName, 1, types.StandardUnitCount, m.dimensions(dimension, value)); err != nil {
			log.Printf("Failed to record %s metric: %v", metricName, err)
		}
	}()
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	dims := []types.Dimension{
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
	if name != "" {
		dims = append(dims, types.Dimension{Name: aws.String(name), Value: aws.String(value)})
	}
	return dims
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	_ context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.enabled || m.client == nil {
		return nil
	}

	// Create context with timeout for CloudWatch call
	timeout := time.Duration(cloudwatchTimeoutSeconds) * time.Second
	cwCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}
