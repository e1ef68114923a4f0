package importer

import (
	"github.com/jbetancur/kubeimport/internal/pkg/cluster"
	"github.com/jbetancur/kubeimport/internal/pkg/providers"
)

// Normalize maps a provider descriptor to a cluster record. Missing fields stay empty.
func Normalize(provider, region string, d providers.Descriptor) cluster.Config {
	id := cluster.ID(provider, region, d.Name)

	return cluster.Config{
		ID:                       id,
		Name:                     id,
		URL:                      d.Endpoint,
		CertificateAuthorityData: d.CertificateAuthorityData,
		InsecureSkipTLSVerify:    false,
		AuthProvider:             provider,
		Namespace:                cluster.DefaultNamespace,
	}
}

// NormalizeAll maps every descriptor, keeping their order
func NormalizeAll(provider, region string, descriptors []providers.Descriptor) []cluster.Config {
	clusters := make([]cluster.Config, 0, len(descriptors))
	for _, d := range descriptors {
		clusters = append(clusters, Normalize(provider, region, d))
	}
	return clusters
}
