package cluster

import "context"

const (
	// DefaultNamespace is the namespace new records start in
	DefaultNamespace = "default"

	// AuthProviderAWS marks records whose credentials come from AWS
	AuthProviderAWS = "aws"
)

// Config is the provider-agnostic description of a cluster the application can connect to
type Config struct {
	ID                       string `json:"id" bson:"id" yaml:"id"`
	Name                     string `json:"name" bson:"name" yaml:"name"`
	URL                      string `json:"url" bson:"url" yaml:"url"`
	CertificateAuthorityData string `json:"certificateAuthorityData" bson:"certificate_authority_data" yaml:"certificateAuthorityData"`
	ClientCertificateData    string `json:"clientCertificateData" bson:"client_certificate_data" yaml:"clientCertificateData"`
	ClientKeyData            string `json:"clientKeyData" bson:"client_key_data" yaml:"clientKeyData"`
	Token                    string `json:"token" bson:"token" yaml:"token"`
	Username                 string `json:"username" bson:"username" yaml:"username"`
	Password                 string `json:"password" bson:"password" yaml:"password"`
	InsecureSkipTLSVerify    bool   `json:"insecureSkipTLSVerify" bson:"insecure_skip_tls_verify" yaml:"insecureSkipTLSVerify"`
	AuthProvider             string `json:"authProvider" bson:"auth_provider" yaml:"authProvider"`
	Namespace                string `json:"namespace" bson:"namespace" yaml:"namespace"`
}

// Registry is the application-wide list of clusters
type Registry interface {
	// AddClusters appends records to the registry in the given order
	AddClusters(ctx context.Context, clusters []Config) error

	// ListClusters returns every registered record
	ListClusters(ctx context.Context) ([]Config, error)
}

// Finder is implemented by registries that can look a record up by id
type Finder interface {
	// GetCluster returns the first record registered under clusterID
	GetCluster(ctx context.Context, clusterID string) (Config, bool, error)
}

// Find returns the first record registered under clusterID, scanning the
// full list when registry cannot look records up itself.
func Find(ctx context.Context, registry Registry, clusterID string) (Config, bool, error) {
	if finder, ok := registry.(Finder); ok {
		return finder.GetCluster(ctx, clusterID)
	}

	clusters, err := registry.ListClusters(ctx)
	if err != nil {
		return Config{}, false, err
	}
	for _, c := range clusters {
		if c.ID == clusterID {
			return c, true, nil
		}
	}
	return Config{}, false, nil
}
