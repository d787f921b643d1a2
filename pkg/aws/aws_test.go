package aws

import (
	"context"
	"errors"
	"testing"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	calls  int
	values map[string]string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*in.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesAndParses(t *testing.T) {
	api := &fakeSecrets{values: map[string]string{
		"checkout/credentials": `{"STRIPE_SECRET_KEY":"sk_test_1","SENDGRID_API_KEY":"SG.x"}`,
		"broken":               `not json`,
	}}
	client := NewSecretsClientWithAPI(api)

	m, err := client.GetSecretMap(context.Background(), "checkout/credentials")
	require.NoError(t, err)
	assert.Equal(t, "sk_test_1", m["STRIPE_SECRET_KEY"])

	_, err = client.GetSecret(context.Background(), "checkout/credentials")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	_, err = client.GetSecretMap(context.Background(), "broken")
	assert.Error(t, err)

	_, err = client.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_Publish(t *testing.T) {
	api := &fakeSNS{}
	client := NewSNSClientWithAPI(api)

	require.NoError(t, client.Publish(context.Background(), "arn:aws:sns:eu-west-3:000000000000:orders", []byte(`{"type":"order_paid"}`)))
	assert.Equal(t, "arn:aws:sns:eu-west-3:000000000000:orders", *api.input.TopicArn)
	assert.Equal(t, `{"type":"order_paid"}`, *api.input.Message)

	assert.Error(t, client.Publish(context.Background(), "", []byte("x")))

	api.err = errors.New("throttled")
	assert.Error(t, client.Publish(context.Background(), "arn:topic", []byte("x")))
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient(t *testing.T) {
	api := &fakeCloudWatch{}
	m := NewMetricsClientWithAPI(api, "", true)

	require.NoError(t, m.RecordCount(context.Background(), MetricNotificationsSent, map[string]string{"Recipient": "admin"}))
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "Checkout", *api.inputs[0].Namespace)
	assert.Equal(t, MetricNotificationsSent, *api.inputs[0].MetricData[0].MetricName)
	assert.Equal(t, "Recipient", *api.inputs[0].MetricData[0].Dimensions[0].Name)

	disabled := NewMetricsClientWithAPI(api, "Checkout", false)
	require.NoError(t, disabled.RecordCount(context.Background(), MetricNotificationsSent, nil))
	assert.Len(t, api.inputs, 1)
	assert.False(t, disabled.IsEnabled())

	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricWebhookEvents, nil))
}

type fakeLogs struct {
	groupErr error
	events   []types.InputLogEvent
}

func (f *fakeLogs) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogs) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.events = append(f.events, in.LogEvents...)
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func TestCloudWatchLogsClient_Write(t *testing.T) {
	api := &fakeLogs{groupErr: &types.ResourceAlreadyExistsException{}}
	c, err := newCloudWatchLogsClient(context.Background(), api, "", "checkout-service")
	require.NoError(t, err)

	n, err := c.Write([]byte(`{"msg":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	require.Len(t, api.events, 1)
	assert.Equal(t, `{"msg":"hello"}`, *api.events[0].Message)

	_, err = newCloudWatchLogsClient(context.Background(), &fakeLogs{groupErr: errors.New("denied")}, "", "checkout-service")
	assert.Error(t, err)
}
