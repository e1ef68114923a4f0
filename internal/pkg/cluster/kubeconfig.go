package cluster

import (
	"encoding/base64"
	"fmt"
	"strings"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

const execAPIVersion = "client.authentication.k8s.io/v1beta1"

// ID derives the registry id of a provider cluster
func ID(provider, region, name string) string {
	return fmt.Sprintf("%s_%s_%s", provider, region, name)
}

// ParseID splits an id produced by ID. Provider and region never contain
// underscores, so everything after the second one is the cluster name.
func ParseID(id string) (provider, region, name string, ok bool) {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}

	return parts[0], parts[1], parts[2], true
}

// KubeConfig renders registry records as a kubeconfig with one context per record
func KubeConfig(clusters []Config) (*api.Config, error) {
	config := api.NewConfig()

	for _, c := range clusters {
		if c.ID == "" {
			return nil, fmt.Errorf("cluster record without id (url %q)", c.URL)
		}

		kc := api.NewCluster()
		kc.Server = c.URL
		kc.InsecureSkipTLSVerify = c.InsecureSkipTLSVerify
		kc.CertificateAuthorityData = decodePEM(c.CertificateAuthorityData)
		config.Clusters[c.ID] = kc

		authInfo, err := authInfoFor(c)
		if err != nil {
			return nil, fmt.Errorf("failed to build credentials for cluster %s: %w", c.ID, err)
		}
		config.AuthInfos[c.ID] = authInfo

		ctx := api.NewContext()
		ctx.Cluster = c.ID
		ctx.AuthInfo = c.ID
		ctx.Namespace = c.Namespace
		if ctx.Namespace == "" {
			ctx.Namespace = DefaultNamespace
		}
		config.Contexts[c.ID] = ctx

		if config.CurrentContext == "" {
			config.CurrentContext = c.ID
		}
	}

	return config, nil
}

// WriteKubeConfig writes the rendered kubeconfig for the records to path
func WriteKubeConfig(path string, clusters []Config) error {
	config, err := KubeConfig(clusters)
	if err != nil {
		return err
	}

	if err := clientcmd.WriteToFile(*config, path); err != nil {
		return fmt.Errorf("failed to write kubeconfig to %s: %w", path, err)
	}

	return nil
}

// RESTConfig builds a client configuration for a single record
func RESTConfig(c Config) (*rest.Config, error) {
	config, err := KubeConfig([]Config{c})
	if err != nil {
		return nil, err
	}

	restConfig, err := clientcmd.NewDefaultClientConfig(*config, &clientcmd.ConfigOverrides{
		CurrentContext: c.ID,
	}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build client config for cluster %s: %w", c.ID, err)
	}

	return restConfig, nil
}

func authInfoFor(c Config) (*api.AuthInfo, error) {
	authInfo := api.NewAuthInfo()
	authInfo.ClientCertificateData = decodePEM(c.ClientCertificateData)
	authInfo.ClientKeyData = decodePEM(c.ClientKeyData)
	authInfo.Token = c.Token
	authInfo.Username = c.Username
	authInfo.Password = c.Password

	switch c.AuthProvider {
	case "":
	case AuthProviderAWS:
		_, region, name, ok := ParseID(c.ID)
		if !ok {
			return nil, fmt.Errorf("id %q is not of the form aws_<region>_<name>", c.ID)
		}
		authInfo.Exec = &api.ExecConfig{
			APIVersion:      execAPIVersion,
			Command:         "aws",
			Args:            []string{"eks", "get-token", "--cluster-name", name, "--region", region},
			InteractiveMode: api.NeverExecInteractiveMode,
		}
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", c.AuthProvider)
	}

	return authInfo, nil
}

// decodePEM accepts base64 encoded or raw PEM data
func decodePEM(data string) []byte {
	if data == "" {
		return nil
	}

	if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
		return decoded
	}

	return []byte(data)
}
