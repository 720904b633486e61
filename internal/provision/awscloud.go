package provision

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cfntypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/schollz/progressbar/v3"
)

const deployPollInterval = 5 * time.Second

// AWSCloud implements Cloud on CloudFormation stacks. Stack names carry the
// run prefix, so prefix-scoped queries enumerate stacks and their resources.
type AWSCloud struct {
	cfn     *cloudformation.Client
	secrets *secretsmanager.Client
}

// NewAWSCloud resolves credentials from the ambient AWS configuration for
// the given region.
func NewAWSCloud(ctx context.Context, region string) (*AWSCloud, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("provision: loading AWS config: %w", err)
	}
	return &AWSCloud{
		cfn:     cloudformation.NewFromConfig(cfg),
		secrets: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// Deploy creates the stack and waits for it to reach a terminal state,
// showing progress on stderr. On failure the stack's failed events are
// rendered before the error is returned.
func (c *AWSCloud) Deploy(ctx context.Context, stackName, templatePath string, params map[string]string) (map[string]string, error) {
	body, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("provision: reading template %s: %w", templatePath, err)
	}

	input := &cloudformation.CreateStackInput{
		StackName:    awssdk.String(stackName),
		TemplateBody: awssdk.String(string(body)),
		Capabilities: []cfntypes.Capability{cfntypes.CapabilityCapabilityNamedIam},
	}
	for key, value := range params {
		input.Parameters = append(input.Parameters, cfntypes.Parameter{
			ParameterKey:   awssdk.String(key),
			ParameterValue: awssdk.String(value),
		})
	}

	if _, err := c.cfn.CreateStack(ctx, input); err != nil {
		return nil, fmt.Errorf("provision: creating stack %s: %w", stackName, err)
	}

	stack, err := c.waitForStack(ctx, stackName)
	if err != nil {
		c.renderFailedEvents(ctx, stackName)
		return nil, err
	}

	outputs := make(map[string]string, len(stack.Outputs))
	for _, out := range stack.Outputs {
		outputs[awssdk.ToString(out.OutputKey)] = awssdk.ToString(out.OutputValue)
	}
	return outputs, nil
}

// waitForStack polls until the stack completes or fails.
func (c *AWSCloud) waitForStack(ctx context.Context, stackName string) (*cfntypes.Stack, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("deploying "+stackName),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	for {
		out, err := c.cfn.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
			StackName: awssdk.String(stackName),
		})
		if err != nil {
			return nil, fmt.Errorf("provision: describing stack %s: %w", stackName, err)
		}
		if len(out.Stacks) == 0 {
			return nil, fmt.Errorf("provision: stack %s not found while waiting", stackName)
		}

		stack := out.Stacks[0]
		switch stack.StackStatus {
		case cfntypes.StackStatusCreateComplete, cfntypes.StackStatusUpdateComplete:
			return &stack, nil
		case cfntypes.StackStatusCreateFailed,
			cfntypes.StackStatusRollbackComplete,
			cfntypes.StackStatusRollbackFailed,
			cfntypes.StackStatusRollbackInProgress:
			return nil, fmt.Errorf("provision: stack %s failed with status %s", stackName, stack.StackStatus)
		}

		bar.Add(1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(deployPollInterval):
		}
	}
}

// renderFailedEvents prints the most recent failed event per resource, up to
// five, so the operator sees why the deployment stopped.
func (c *AWSCloud) renderFailedEvents(ctx context.Context, stackName string) {
	out, err := c.cfn.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: awssdk.String(stackName),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not fetch events for %s: %v\n", stackName, err)
		return
	}

	seen := make(map[string]bool)
	shown := 0
	for _, event := range out.StackEvents {
		resourceID := awssdk.ToString(event.LogicalResourceId)
		if seen[resourceID] || !strings.HasSuffix(string(event.ResourceStatus), "_FAILED") {
			continue
		}
		seen[resourceID] = true
		fmt.Fprintf(os.Stderr, "%s  %s  %s\n",
			resourceID, event.ResourceStatus, awssdk.ToString(event.ResourceStatusReason))
		if shown++; shown >= 5 {
			break
		}
	}
}

// ResourcesByPrefix lists the resources of every stack whose name starts
// with the run prefix.
func (c *AWSCloud) ResourcesByPrefix(ctx context.Context, prefix string) ([]Resource, error) {
	var resources []Resource

	paginator := cloudformation.NewDescribeStacksPaginator(c.cfn, &cloudformation.DescribeStacksInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("provision: listing stacks: %w", err)
		}
		for _, stack := range page.Stacks {
			name := awssdk.ToString(stack.StackName)
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			out, err := c.cfn.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
				StackName: awssdk.String(name),
			})
			if err != nil {
				return nil, fmt.Errorf("provision: listing resources of %s: %w", name, err)
			}
			for _, res := range out.StackResources {
				resources = append(resources, Resource{
					Name: awssdk.ToString(res.LogicalResourceId),
					Type: awssdk.ToString(res.ResourceType),
					ID:   awssdk.ToString(res.PhysicalResourceId),
				})
			}
		}
	}
	return resources, nil
}

// StorageAccessKey fetches the storage account's access key from the secret
// the deployment wrote alongside it.
func (c *AWSCloud) StorageAccessKey(ctx context.Context, storageName string) (string, error) {
	out, err := c.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awssdk.String(storageName + "-access-key"),
	})
	if err != nil {
		return "", fmt.Errorf("provision: fetching access key for %s: %w", storageName, err)
	}
	return awssdk.ToString(out.SecretString), nil
}

// DeleteResource deletes the stack owning the resource. Deleting the same
// stack twice is harmless; CloudFormation treats it as already gone.
func (c *AWSCloud) DeleteResource(ctx context.Context, res Resource) error {
	_, err := c.cfn.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: awssdk.String(res.Name),
	})
	if err != nil {
		return fmt.Errorf("provision: deleting %s: %w", res.Name, err)
	}
	return nil
}
