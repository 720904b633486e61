package provision

import (
	"context"
	"fmt"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// Cleanup lists the resources under a run prefix, optionally narrowed by a
// glob pattern on resource names, and interactively deletes the selected
// ones. It is advisory: declining the confirmation or selecting nothing is
// not an error, and individual delete failures do not stop the rest.
func (o *Orchestrator) Cleanup(ctx context.Context, prefix, pattern string) error {
	resources, err := o.cloud.ResourcesByPrefix(ctx, prefix)
	if err != nil {
		return err
	}

	if pattern != "" {
		matcher, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("provision: invalid cleanup pattern %q: %w", pattern, err)
		}
		filtered := resources[:0]
		for _, res := range resources {
			if matcher.Match(res.Name) {
				filtered = append(filtered, res)
			}
		}
		resources = filtered
	}

	if len(resources) == 0 {
		fmt.Fprintf(o.out, "No resources found under prefix %s\n", prefix)
		return nil
	}

	confirmed, err := o.prompter.Confirm(
		fmt.Sprintf("Delete resources created under prefix %s?", prefix))
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}

	names := make([]string, len(resources))
	byName := make(map[string]Resource, len(resources))
	for i, res := range resources {
		names[i] = res.Name
		byName[res.Name] = res
	}

	selected, err := o.prompter.MultiSelect("Select resources to delete", names)
	if err != nil {
		return err
	}

	for _, name := range selected {
		res := byName[name]
		if err := o.cloud.DeleteResource(ctx, res); err != nil {
			o.logger.Warn("delete failed", zap.String("resource", name), zap.Error(err))
			fmt.Fprintf(o.out, "failed to delete %s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(o.out, "deleted %s\n", name)
	}
	return nil
}

// List prints every resource currently provisioned under the prefix.
func (o *Orchestrator) List(ctx context.Context, prefix string) error {
	resources, err := o.cloud.ResourcesByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		fmt.Fprintf(o.out, "No resources found under prefix %s\n", prefix)
		return nil
	}
	for _, res := range resources {
		fmt.Fprintf(o.out, "%-40s %-30s %s\n", res.Name, res.Type, res.ID)
	}
	return nil
}
