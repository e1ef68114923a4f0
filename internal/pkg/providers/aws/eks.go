package aws

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/aws/aws-sdk-go/service/eks/eksiface"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
)

// ProviderName is the tag used in ids of clusters imported from AWS
const ProviderName = "aws"

// ClientFactory builds an EKS client for static credentials in a region
type ClientFactory func(accessKeyID, secretKey, region string) (eksiface.EKSAPI, error)

// EKS enumerates Amazon EKS clusters
type EKS struct {
	newClient ClientFactory
	logger    *slog.Logger
}

// NewEKS creates an EKS enumerator talking to the AWS API
func NewEKS(logger *slog.Logger) *EKS {
	return NewEKSWithFactory(newClient, logger)
}

// NewEKSWithFactory creates an EKS enumerator using factory to build clients
func NewEKSWithFactory(factory ClientFactory, logger *slog.Logger) *EKS {
	return &EKS{
		newClient: factory,
		logger:    logger,
	}
}

func newClient(accessKeyID, secretKey, region string) (eksiface.EKSAPI, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewStaticCredentials(accessKeyID, secretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return eks.New(sess), nil
}

// EnumerateClusters lists the clusters in region and describes each one, keeping list order
func (e *EKS) EnumerateClusters(ctx context.Context, accessKeyID, secretKey, region string) ([]providers.Descriptor, error) {
	client, err := e.newClient(accessKeyID, secretKey, region)
	if err != nil {
		return nil, err
	}

	var names []string
	err = client.ListClustersPagesWithContext(ctx, &eks.ListClustersInput{}, func(page *eks.ListClustersOutput, lastPage bool) bool {
		names = append(names, aws.StringValueSlice(page.Clusters)...)
		return true
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Listed EKS clusters", "region", region, "count", len(names))

	descriptors := make([]providers.Descriptor, 0, len(names))
	for _, name := range names {
		out, err := client.DescribeClusterWithContext(ctx, &eks.DescribeClusterInput{
			Name: aws.String(name),
		})
		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, toDescriptor(name, out.Cluster))
	}

	return descriptors, nil
}

func toDescriptor(name string, c *eks.Cluster) providers.Descriptor {
	d := providers.Descriptor{Name: name}
	if c == nil {
		return d
	}

	if c.Name != nil {
		d.Name = aws.StringValue(c.Name)
	}
	d.Endpoint = aws.StringValue(c.Endpoint)
	if c.CertificateAuthority != nil {
		d.CertificateAuthorityData = aws.StringValue(c.CertificateAuthority.Data)
	}

	return d
}

var _ providers.Enumerator = (*EKS)(nil)
