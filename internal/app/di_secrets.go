package app

import (
	"fmt"

	"github.com/docker/docker/client"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/allisson/secretbroker/internal/config"
	secretsHTTP "github.com/allisson/secretbroker/internal/secrets/http"
	secretsRepository "github.com/allisson/secretbroker/internal/secrets/repository"
	secretsUseCase "github.com/allisson/secretbroker/internal/secrets/usecase"
)

// SecretUseCase returns the secret use case backed by the master vault.
func (c *Container) SecretUseCase() (secretsUseCase.SecretUseCase, error) {
	var err error
	c.secretUseCaseInit.Do(func() {
		c.secretUseCase, err = c.initSecretUseCase()
		if err != nil {
			c.setInitError("secretUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretUseCase, nil
}

// SecretHandler returns the HTTP handler serving /v1/secrets.
func (c *Container) SecretHandler() (*secretsHTTP.SecretHandler, error) {
	var err error
	c.secretHandlerInit.Do(func() {
		c.secretHandler, err = c.initSecretHandler()
		if err != nil {
			c.setInitError("secretHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secretHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.secretHandler, nil
}

// KubernetesClient returns a clientset built from the in-cluster config or the local kubeconfig.
func (c *Container) KubernetesClient() (kubernetes.Interface, error) {
	var err error
	c.kubernetesClientInit.Do(func() {
		c.kubernetesClient, err = c.initKubernetesClient()
		if err != nil {
			c.setInitError("kubernetesClient", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("kubernetesClient"); storedErr != nil {
		return nil, storedErr
	}
	return c.kubernetesClient, nil
}

// DockerClient returns a Docker engine client configured from the DOCKER_* environment.
func (c *Container) DockerClient() (*client.Client, error) {
	var err error
	c.dockerClientInit.Do(func() {
		c.dockerClient, err = c.initDockerClient()
		if err != nil {
			c.setInitError("dockerClient", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("dockerClient"); storedErr != nil {
		return nil, storedErr
	}
	return c.dockerClient, nil
}

// AppSecretsBackend returns the orchestrator backend for application secrets,
// or nil when APP_SECRETS_BACKEND is empty.
func (c *Container) AppSecretsBackend() (secretsUseCase.Backend, error) {
	var err error
	c.appSecretsBackendInit.Do(func() {
		c.appSecretsBackend, err = c.initAppSecretsBackend()
		if err != nil {
			c.setInitError("appSecretsBackend", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("appSecretsBackend"); storedErr != nil {
		return nil, storedErr
	}
	return c.appSecretsBackend, nil
}

// AppSecretUseCase returns the use case for application secrets, or nil when disabled.
func (c *Container) AppSecretUseCase() (secretsUseCase.SecretUseCase, error) {
	var err error
	c.appSecretUseCaseInit.Do(func() {
		c.appSecretUseCase, err = c.initAppSecretUseCase()
		if err != nil {
			c.setInitError("appSecretUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("appSecretUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.appSecretUseCase, nil
}

// AppSecretHandler returns the HTTP handler serving /v1/appsecrets, or nil when disabled.
func (c *Container) AppSecretHandler() (*secretsHTTP.SecretHandler, error) {
	var err error
	c.appSecretHandlerInit.Do(func() {
		c.appSecretHandler, err = c.initAppSecretHandler()
		if err != nil {
			c.setInitError("appSecretHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("appSecretHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.appSecretHandler, nil
}

func (c *Container) initSecretUseCase() (secretsUseCase.SecretUseCase, error) {
	lifecycle, err := c.LifecycleUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get lifecycle use case for secret use case: %w", err)
	}

	backend := secretsRepository.NewVaultSecretRepository(lifecycle)
	return c.wrapSecretUseCase(secretsUseCase.NewSecretUseCase(backend, c.Logger()))
}

func (c *Container) initSecretHandler() (*secretsHTTP.SecretHandler, error) {
	useCase, err := c.SecretUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret use case for secret handler: %w", err)
	}
	return secretsHTTP.NewSecretHandler(useCase, c.Logger()), nil
}

func (c *Container) initKubernetesClient() (kubernetes.Interface, error) {
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{},
	)

	restConfig, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes client config: %w", err)
	}
	restConfig.Timeout = c.config.KubernetesTimeout

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return clientset, nil
}

func (c *Container) initDockerClient() (*client.Client, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return dockerClient, nil
}

func (c *Container) initAppSecretsBackend() (secretsUseCase.Backend, error) {
	switch c.config.AppSecretsBackend {
	case "":
		return nil, nil
	case config.AppSecretsBackendKubernetes:
		clientset, err := c.KubernetesClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes client for app secrets backend: %w", err)
		}
		return secretsRepository.NewKubernetesSecretRepository(clientset, secretsRepository.KubernetesConfig{
			Namespace:  c.config.KubernetesNamespace,
			SecretName: c.config.KubernetesSecretName,
			Timeout:    c.config.KubernetesTimeout,
		}, c.Logger()), nil
	case config.AppSecretsBackendSwarm:
		dockerClient, err := c.DockerClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get docker client for app secrets backend: %w", err)
		}
		return secretsRepository.NewSwarmSecretRepository(dockerClient, c.config.SwarmTimeout, c.Logger()), nil
	default:
		return nil, fmt.Errorf("unsupported app secrets backend: %s", c.config.AppSecretsBackend)
	}
}

func (c *Container) initAppSecretUseCase() (secretsUseCase.SecretUseCase, error) {
	backend, err := c.AppSecretsBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to get app secrets backend: %w", err)
	}
	if backend == nil {
		return nil, nil
	}
	return c.wrapSecretUseCase(secretsUseCase.NewSecretUseCase(backend, c.Logger()))
}

func (c *Container) initAppSecretHandler() (*secretsHTTP.SecretHandler, error) {
	useCase, err := c.AppSecretUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get app secret use case for app secret handler: %w", err)
	}
	if useCase == nil {
		return nil, nil
	}
	return secretsHTTP.NewSecretHandler(useCase, c.Logger()), nil
}

func (c *Container) wrapSecretUseCase(useCase secretsUseCase.SecretUseCase) (secretsUseCase.SecretUseCase, error) {
	if !c.config.MetricsEnabled {
		return useCase, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for secret use case: %w", err)
	}
	return secretsUseCase.NewSecretUseCaseWithMetrics(useCase, businessMetrics), nil
}
