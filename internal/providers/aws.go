package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// maxDatapointsPerCall is the CloudWatch limit on datapoints returned by a
// single GetMetricStatistics call.
const maxDatapointsPerCall = 1440

type ec2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

type cloudwatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// AWSProvider discovers EC2 instances and reads their CloudWatch statistics.
type AWSProvider struct {
	ec2 ec2API
	cw  cloudwatchAPI
}

// NewAWSProvider builds a provider from a loaded SDK config.
func NewAWSProvider(cfg aws.Config) *AWSProvider {
	return &AWSProvider{
		ec2: ec2.NewFromConfig(cfg),
		cw:  cloudwatch.NewFromConfig(cfg),
	}
}

// RegisterAWS registers the AWS provider factory with the global registry.
// Keys stored with `auth login aws` are used when present; otherwise the
// SDK's default credential chain applies.
func RegisterAWS() {
	Register("aws", func(store auth.Store, settings Settings) (domain.Provider, error) {
		creds, err := platformproviders.Lookup("aws").ResolveOptional(store)
		if err != nil {
			return nil, fmt.Errorf("aws auth: %w", err)
		}

		var opts []func(*awsconfig.LoadOptions) error
		if settings.Region != "" {
			opts = append(opts, awsconfig.WithRegion(settings.Region))
		}
		if len(creds) > 0 {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(creds["accesskeyid"], creds["secretaccesskey"], ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		return NewAWSProvider(cfg), nil
	})
}

func (p *AWSProvider) GetDisplayName() string {
	return "AWS"
}

var ec2StateNames = map[domain.LifecycleState][]string{
	domain.StatePending:    {"pending"},
	domain.StateRunning:    {"running"},
	domain.StateStopping:   {"stopping", "shutting-down"},
	domain.StateStopped:    {"stopped"},
	domain.StateTerminated: {"terminated"},
}

func ec2State(s *ec2types.InstanceState) domain.LifecycleState {
	if s == nil {
		return domain.StateUnknown
	}
	for state, names := range ec2StateNames {
		for _, n := range names {
			if string(s.Name) == n {
				return state
			}
		}
	}
	return domain.StateUnknown
}

// ListResources pages through DescribeInstances with a server-side
// instance-state filter.
func (p *AWSProvider) ListResources(ctx context.Context, states []domain.LifecycleState) ([]domain.Resource, error) {
	var names []string
	for _, s := range states {
		names = append(names, ec2StateNames[s]...)
	}
	sort.Strings(names)

	input := &ec2.DescribeInstancesInput{}
	if len(names) > 0 {
		input.Filters = []ec2types.Filter{{Name: aws.String("instance-state-name"), Values: names}}
	}

	var resources []domain.Resource
	pages := ec2.NewDescribeInstancesPaginator(p.ec2, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, &domain.DiscoveryError{Provider: "aws", Err: classifyAWSError(err)}
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				resources = append(resources, toEC2Resource(inst))
			}
		}
	}
	return resources, nil
}

func toEC2Resource(inst ec2types.Instance) domain.Resource {
	r := domain.Resource{
		Provider:  "aws",
		ID:        aws.ToString(inst.InstanceId),
		Name:      domain.DefaultResourceName,
		Type:      string(inst.InstanceType),
		State:     ec2State(inst.State),
		PrivateIP: aws.ToString(inst.PrivateIpAddress),
		PublicIP:  aws.ToString(inst.PublicIpAddress),
		Platform:  domain.DefaultPlatform,
	}
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" && aws.ToString(tag.Value) != "" {
			r.Name = aws.ToString(tag.Value)
		}
	}
	if inst.Placement != nil {
		r.AvailabilityZone = aws.ToString(inst.Placement.AvailabilityZone)
	}
	if inst.LaunchTime != nil {
		r.LaunchTime = inst.LaunchTime.UTC()
	}
	if inst.Platform != "" {
		r.Platform = strings.ToLower(string(inst.Platform))
	}
	return r
}

// GetMetricStatistics answers a query of a single statistic shape: either
// plain statistics or percentiles, matching how CloudWatch separates
// Statistics from ExtendedStatistics. Windows longer than the per-call
// datapoint limit are split into consecutive calls.
func (p *AWSProvider) GetMetricStatistics(ctx context.Context, q domain.MetricQuery) ([]domain.Observation, error) {
	plain, pct := domain.SplitStatistics(q.Statistics)
	if len(plain) > 0 && len(pct) > 0 {
		return nil, fmt.Errorf("cloudwatch %s: plain and percentile statistics must be requested separately", q.Metric)
	}
	if len(plain) == 0 && len(pct) == 0 {
		return nil, nil
	}

	period := int32(q.Period / time.Second)
	if period <= 0 {
		return nil, fmt.Errorf("cloudwatch %s: invalid period %s", q.Metric, q.Period)
	}

	input := &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(q.Namespace),
		MetricName: aws.String(q.Metric),
		Period:     aws.Int32(period),
	}
	for _, d := range q.Dimensions {
		input.Dimensions = append(input.Dimensions, cwtypes.Dimension{Name: aws.String(d.Name), Value: aws.String(d.Value)})
	}
	for _, s := range plain {
		input.Statistics = append(input.Statistics, cwtypes.Statistic(s))
	}
	for _, s := range pct {
		input.ExtendedStatistics = append(input.ExtendedStatistics, string(s))
	}

	var out []domain.Observation
	for _, w := range splitWindow(q.Start, q.End, q.Period, maxDatapointsPerCall) {
		call := *input
		call.StartTime = aws.Time(w[0])
		call.EndTime = aws.Time(w[1])

		resp, err := p.cw.GetMetricStatistics(ctx, &call)
		if err != nil {
			return out, classifyAWSError(err)
		}
		for _, dp := range resp.Datapoints {
			out = append(out, toObservation(dp, plain, pct))
		}
	}
	return out, nil
}

func toObservation(dp cwtypes.Datapoint, plain, pct []domain.Statistic) domain.Observation {
	obs := domain.Observation{Unit: string(dp.Unit)}
	if dp.Timestamp != nil {
		obs.Timestamp = dp.Timestamp.UTC()
	}
	for _, s := range plain {
		var v *float64
		switch s {
		case domain.StatAverage:
			v = dp.Average
		case domain.StatMaximum:
			v = dp.Maximum
		case domain.StatMinimum:
			v = dp.Minimum
		case domain.StatSum:
			v = dp.Sum
		}
		if v != nil {
			obs.Values.Set(s, *v)
		}
	}
	for _, s := range pct {
		if v, ok := dp.ExtendedStatistics[string(s)]; ok {
			obs.Values.Set(s, v)
		}
	}
	return obs
}

// splitWindow cuts [start, end) into consecutive windows of at most
// limit periods each.
func splitWindow(start, end time.Time, period time.Duration, limit int) [][2]time.Time {
	if !end.After(start) {
		return nil
	}
	span := period * time.Duration(limit)
	var out [][2]time.Time
	for s := start; s.Before(end); s = s.Add(span) {
		e := s.Add(span)
		if e.After(end) {
			e = end
		}
		out = append(out, [2]time.Time{s, e})
	}
	return out
}

var (
	awsUnauthorizedCodes = map[string]bool{
		"UnauthorizedOperation":       true,
		"AccessDenied":                true,
		"AccessDeniedException":       true,
		"AuthFailure":                 true,
		"InvalidClientTokenId":        true,
		"ExpiredToken":                true,
		"UnrecognizedClientException": true,
	}
	awsThrottleCodes = map[string]bool{
		"Throttling":               true,
		"ThrottlingException":      true,
		"RequestLimitExceeded":     true,
		"TooManyRequestsException": true,
	}
)

func classifyAWSError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch code := apiErr.ErrorCode(); {
	case awsUnauthorizedCodes[code]:
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	case awsThrottleCodes[code]:
		return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	case code == "InvalidInstanceID.NotFound", code == "ResourceNotFound":
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}
