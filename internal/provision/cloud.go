package provision

import "context"

// Resource is one provisioned cloud resource.
type Resource struct {
	Name string
	Type string
	ID   string
}

// Cloud abstracts the deployment backend. Deploy blocks until the stack
// reaches a terminal state and returns its outputs.
type Cloud interface {
	Deploy(ctx context.Context, stackName, templatePath string, params map[string]string) (outputs map[string]string, err error)
	ResourcesByPrefix(ctx context.Context, prefix string) ([]Resource, error)
	StorageAccessKey(ctx context.Context, storageName string) (string, error)
	DeleteResource(ctx context.Context, res Resource) error
}
