package providers

import "context"

// Descriptor is a cluster as reported by a provider API
type Descriptor struct {
	Name                     string
	Endpoint                 string
	CertificateAuthorityData string
}

// Enumerator lists the clusters an account can see in a region
type Enumerator interface {
	EnumerateClusters(ctx context.Context, accessKeyID, secretKey, region string) ([]Descriptor, error)
}

// EnumeratorFunc adapts a function to an Enumerator
type EnumeratorFunc func(ctx context.Context, accessKeyID, secretKey, region string) ([]Descriptor, error)

// EnumerateClusters calls f
func (f EnumeratorFunc) EnumerateClusters(ctx context.Context, accessKeyID, secretKey, region string) ([]Descriptor, error) {
	return f(ctx, accessKeyID, secretKey, region)
}
