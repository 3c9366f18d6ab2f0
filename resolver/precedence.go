package resolver

import (
	"github.com/tabkit/pipeline/model"
)

// ResolverLookup fetches a resolver definition by id (backed by store.Store
// in the engine; kept as a func type here to avoid an import cycle).
type ResolverLookup func(id string) (model.Resolver, bool)

// SelectResolver applies the three-tier precedence of §4.3:
//  1. project.resolver_overrides[dataset.id] if Active -> ProjectOverride
//  2. dataset.resolver_id if Active -> DatasetReference
//  3. the first Active resolver with is_default=true -> SystemDefault
func SelectResolver(project *model.Project, dataset *model.Dataset, resolvers []model.Resolver, lookup ResolverLookup) (model.Resolver, model.ResolverSource, error) {
	if project != nil && dataset != nil {
		if id, ok := project.ResolverOverrides[dataset.ID]; ok {
			if r, ok := lookup(id); ok && r.Status == model.ResolverActive {
				return r, model.SourceProjectOverride, nil
			}
		}
	}
	if dataset != nil && dataset.ResolverID != "" {
		if r, ok := lookup(dataset.ResolverID); ok && r.Status == model.ResolverActive {
			return r, model.SourceDatasetReference, nil
		}
	}
	for _, r := range resolvers {
		if r.Status == model.ResolverActive && r.IsDefault {
			return r, model.SourceSystemDefault, nil
		}
	}
	return model.Resolver{}, "", Error{Kind: ErrResolverSelectionFailed, Reason: "no project override, dataset resolver, or active default resolver applies"}
}

// ResolveWithPrecedence implements the `resolve_with_precedence` entry point
// (§4.3): selects the resolver via SelectResolver and then resolves.
func ResolveWithPrecedence(request Request, project *model.Project, dataset *model.Dataset, resolvers []model.Resolver, lookup ResolverLookup, cal model.Calendar, periods []model.Period) (Result, error) {
	r, source, err := SelectResolver(project, dataset, resolvers, lookup)
	if err != nil {
		return Result{}, err
	}
	return ResolveWithSource(request, r, cal, periods, source)
}
