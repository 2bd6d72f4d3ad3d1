package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

type fakeEC2 struct {
	pages  []*ec2.DescribeInstancesOutput
	err    error
	inputs []*ec2.DescribeInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	idx := 0
	if in.NextToken != nil {
		switch *in.NextToken {
		case "page-2":
			idx = 1
		}
	}
	return f.pages[idx], nil
}

type fakeCloudWatch struct {
	calls []*cloudwatch.GetMetricStatisticsInput
	resp  func(in *cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error)
}

func (f *fakeCloudWatch) GetMetricStatistics(_ context.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	f.calls = append(f.calls, in)
	return f.resp(in)
}

func TestAWSListResources_PaginatesAndMaps(t *testing.T) {
	launch := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
		{
			NextToken: aws.String("page-2"),
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
				InstanceId:       aws.String("i-1"),
				InstanceType:     ec2types.InstanceTypeT3Micro,
				State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
				Placement:        &ec2types.Placement{AvailabilityZone: aws.String("eu-west-1a")},
				PrivateIpAddress: aws.String("10.0.0.1"),
				PublicIpAddress:  aws.String("54.1.2.3"),
				LaunchTime:       aws.Time(launch),
				Tags:             []ec2types.Tag{{Key: aws.String("Name"), Value: aws.String("web")}},
			}}}},
		},
		{
			Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
				InstanceId:   aws.String("i-2"),
				InstanceType: ec2types.InstanceTypeM5Large,
				State:        &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped},
				Platform:     ec2types.PlatformValuesWindows,
			}}}},
		},
	}}
	p := &AWSProvider{ec2: fake}

	got, err := p.ListResources(context.Background(), []domain.LifecycleState{domain.StateRunning, domain.StateStopped})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Resource{
		{
			Provider: "aws", ID: "i-1", Name: "web", Type: "t3.micro", AvailabilityZone: "eu-west-1a",
			State: domain.StateRunning, PrivateIP: "10.0.0.1", PublicIP: "54.1.2.3",
			LaunchTime: launch, Platform: "linux",
		},
		{
			Provider: "aws", ID: "i-2", Name: "unnamed", Type: "m5.large",
			State: domain.StateStopped, Platform: "windows",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}

	if len(fake.inputs) != 2 {
		t.Fatalf("expected 2 DescribeInstances calls, got %d", len(fake.inputs))
	}
	filter := fake.inputs[0].Filters[0]
	if diff := cmp.Diff([]string{"running", "stopped"}, filter.Values); diff != "" {
		t.Errorf("state filter mismatch (-want +got):\n%s", diff)
	}
}

func TestAWSListResources_UnauthorizedIsDiscoveryError(t *testing.T) {
	fake := &fakeEC2{err: &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "nope"}}
	p := &AWSProvider{ec2: fake}

	_, err := p.ListResources(context.Background(), domain.DefaultStates)

	var discErr *domain.DiscoveryError
	if !errors.As(err, &discErr) {
		t.Fatalf("expected *DiscoveryError, got %T: %v", err, err)
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAWSGetMetricStatistics_PlainShape(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cw := &fakeCloudWatch{resp: func(*cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
		return &cloudwatch.GetMetricStatisticsOutput{Datapoints: []cwtypes.Datapoint{{
			Timestamp: aws.Time(ts),
			Average:   aws.Float64(12.5),
			Maximum:   aws.Float64(40),
			Unit:      cwtypes.StandardUnitPercent,
		}}}, nil
	}}
	p := &AWSProvider{cw: cw}

	got, err := p.GetMetricStatistics(context.Background(), domain.MetricQuery{
		Namespace:  "AWS/EC2",
		Metric:     "CPUUtilization",
		Dimensions: []domain.Dimension{{Name: "InstanceId", Value: "i-1"}},
		Start:      ts,
		End:        ts.Add(time.Hour),
		Period:     time.Minute,
		Statistics: []domain.Statistic{domain.StatAverage, domain.StatMaximum},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	avg, peak := 12.5, 40.0
	want := []domain.Observation{{
		Timestamp: ts,
		Unit:      "Percent",
		Values:    domain.StatValues{Average: &avg, Maximum: &peak},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("observations mismatch (-want +got):\n%s", diff)
	}

	call := cw.calls[0]
	if len(call.ExtendedStatistics) != 0 {
		t.Errorf("plain query should not send extended statistics, got %v", call.ExtendedStatistics)
	}
	if aws.ToInt32(call.Period) != 60 {
		t.Errorf("period = %d, want 60", aws.ToInt32(call.Period))
	}
	if aws.ToString(call.Dimensions[0].Value) != "i-1" {
		t.Errorf("dimension value = %q, want i-1", aws.ToString(call.Dimensions[0].Value))
	}
}

func TestAWSGetMetricStatistics_PercentileShape(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cw := &fakeCloudWatch{resp: func(*cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
		return &cloudwatch.GetMetricStatisticsOutput{Datapoints: []cwtypes.Datapoint{{
			Timestamp:          aws.Time(ts),
			ExtendedStatistics: map[string]float64{"p95": 88},
		}}}, nil
	}}
	p := &AWSProvider{cw: cw}

	got, err := p.GetMetricStatistics(context.Background(), domain.MetricQuery{
		Namespace:  "AWS/EC2",
		Metric:     "CPUUtilization",
		Start:      ts,
		End:        ts.Add(time.Hour),
		Period:     time.Minute,
		Statistics: []domain.Statistic{domain.StatP95},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Values.P95 == nil || *got[0].Values.P95 != 88 {
		t.Fatalf("unexpected observations: %+v", got)
	}
	if diff := cmp.Diff([]string{"p95"}, cw.calls[0].ExtendedStatistics); diff != "" {
		t.Errorf("extended statistics mismatch (-want +got):\n%s", diff)
	}
	if len(cw.calls[0].Statistics) != 0 {
		t.Errorf("percentile query should not send plain statistics")
	}
}

func TestAWSGetMetricStatistics_RejectsMixedShapes(t *testing.T) {
	p := &AWSProvider{cw: &fakeCloudWatch{}}
	_, err := p.GetMetricStatistics(context.Background(), domain.MetricQuery{
		Metric:     "CPUUtilization",
		Period:     time.Minute,
		Statistics: []domain.Statistic{domain.StatAverage, domain.StatP99},
	})
	if err == nil {
		t.Fatal("expected error for mixed statistic shapes")
	}
}

func TestAWSGetMetricStatistics_SplitsLongWindows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cw := &fakeCloudWatch{resp: func(*cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
		return &cloudwatch.GetMetricStatisticsOutput{}, nil
	}}
	p := &AWSProvider{cw: cw}

	_, err := p.GetMetricStatistics(context.Background(), domain.MetricQuery{
		Metric:     "NetworkIn",
		Start:      start,
		End:        start.Add(60 * time.Hour),
		Period:     time.Minute,
		Statistics: []domain.Statistic{domain.StatSum},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 60h of 1-minute periods is 3600 datapoints: 1440 + 1440 + 720.
	if len(cw.calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(cw.calls))
	}
	if got := aws.ToTime(cw.calls[2].EndTime); !got.Equal(start.Add(60 * time.Hour)) {
		t.Errorf("last window end = %s, want %s", got, start.Add(60*time.Hour))
	}
}

func TestAWSGetMetricStatistics_ThrottleClassified(t *testing.T) {
	cw := &fakeCloudWatch{resp: func(*cloudwatch.GetMetricStatisticsInput) (*cloudwatch.GetMetricStatisticsOutput, error) {
		return nil, &smithy.GenericAPIError{Code: "Throttling", Message: "Rate exceeded"}
	}}
	p := &AWSProvider{cw: cw}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := p.GetMetricStatistics(context.Background(), domain.MetricQuery{
		Metric: "NetworkIn", Start: start, End: start.Add(time.Hour), Period: time.Minute,
		Statistics: []domain.Statistic{domain.StatSum},
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
