package aws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/eks"
	"github.com/aws/aws-sdk-go/service/eks/eksiface"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEKS struct {
	eksiface.EKSAPI
	pages       [][]string
	clusters    map[string]*eks.Cluster
	listErr     error
	describeErr error
	described   []string
}

func (f *fakeEKS) ListClustersPagesWithContext(_ aws.Context, _ *eks.ListClustersInput, fn func(*eks.ListClustersOutput, bool) bool, _ ...request.Option) error {
	if f.listErr != nil {
		return f.listErr
	}

	for i, page := range f.pages {
		if !fn(&eks.ListClustersOutput{Clusters: aws.StringSlice(page)}, i == len(f.pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeEKS) DescribeClusterWithContext(_ aws.Context, in *eks.DescribeClusterInput, _ ...request.Option) (*eks.DescribeClusterOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}

	name := aws.StringValue(in.Name)
	f.described = append(f.described, name)
	return &eks.DescribeClusterOutput{Cluster: f.clusters[name]}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enumeratorFor(fake *fakeEKS, gotCreds *[3]string) *EKS {
	return NewEKSWithFactory(func(accessKeyID, secretKey, region string) (eksiface.EKSAPI, error) {
		if gotCreds != nil {
			*gotCreds = [3]string{accessKeyID, secretKey, region}
		}
		return fake, nil
	}, discardLogger())
}

func TestEnumerateClustersAcrossPages(t *testing.T) {
	fake := &fakeEKS{
		pages: [][]string{{"dev"}, {"prod", "staging"}},
		clusters: map[string]*eks.Cluster{
			"dev": {
				Name:                 aws.String("dev"),
				Endpoint:             aws.String("https://dev.example.com"),
				CertificateAuthority: &eks.Certificate{Data: aws.String("Y2EtZGV2")},
			},
			"prod": {
				Name:     aws.String("prod"),
				Endpoint: aws.String("https://prod.example.com"),
			},
		},
	}

	var creds [3]string
	descriptors, err := enumeratorFor(fake, &creds).EnumerateClusters(context.Background(), "AKIA", "secret", "us-east-1")
	require.NoError(t, err)

	assert.Equal(t, [3]string{"AKIA", "secret", "us-east-1"}, creds)
	assert.Equal(t, []string{"dev", "prod", "staging"}, fake.described)
	assert.Equal(t, []providers.Descriptor{
		{Name: "dev", Endpoint: "https://dev.example.com", CertificateAuthorityData: "Y2EtZGV2"},
		{Name: "prod", Endpoint: "https://prod.example.com"},
		{Name: "staging"},
	}, descriptors)
}

func TestEnumerateClustersListError(t *testing.T) {
	fake := &fakeEKS{listErr: errors.New("UnrecognizedClientException: The security token included in the request is invalid.")}

	_, err := enumeratorFor(fake, nil).EnumerateClusters(context.Background(), "AKIA", "bad", "us-east-1")
	require.EqualError(t, err, "UnrecognizedClientException: The security token included in the request is invalid.")
}

func TestEnumerateClustersDescribeError(t *testing.T) {
	fake := &fakeEKS{pages: [][]string{{"dev"}}, describeErr: errors.New("throttled")}

	_, err := enumeratorFor(fake, nil).EnumerateClusters(context.Background(), "AKIA", "secret", "us-east-1")
	require.EqualError(t, err, "throttled")
}

func TestEnumerateClustersFactoryError(t *testing.T) {
	e := NewEKSWithFactory(func(string, string, string) (eksiface.EKSAPI, error) {
		return nil, errors.New("no session")
	}, discardLogger())

	_, err := e.EnumerateClusters(context.Background(), "", "", "us-east-1")
	require.EqualError(t, err, "no session")
}

func TestEnumerateClustersEmpty(t *testing.T) {
	descriptors, err := enumeratorFor(&fakeEKS{}, nil).EnumerateClusters(context.Background(), "AKIA", "secret", "us-east-1")
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}
