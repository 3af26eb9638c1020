// Package azure implements source.Source against the ARM control plane: the
// provider operations metadata endpoint for permission operations and the
// Microsoft.Features endpoint for feature-registration switches.
package azure

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armfeatures"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/cloudpeek/azactions/pkg/source"
)

// featureNamespacePlaceholder stands in for the display namespace, which the
// feature feed does not expose.
const featureNamespacePlaceholder = "-"

// Client is the ARM-backed catalog source.
type Client struct {
	operations *armauthorization.ProviderOperationsMetadataClient
	features   *armfeatures.Client
}

var _ source.Source = (*Client)(nil)

// New builds a catalog client for the given subscription. The subscription is
// only consulted by the feature feed; operations metadata is tenant-wide.
func New(subscriptionID string, cred azcore.TokenCredential) (*Client, error) {
	authFactory, err := armauthorization.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, errors.Errorf("creating authorization client factory: %w", err)
	}
	featuresFactory, err := armfeatures.NewClientFactory(subscriptionID, cred, nil)
	if err != nil {
		return nil, errors.Errorf("creating features client factory: %w", err)
	}
	return &Client{
		operations: authFactory.NewProviderOperationsMetadataClient(),
		features:   featuresFactory.NewClient(),
	}, nil
}

// ListProviderOperations pulls operations metadata for every provider,
// expanding resource types so data-plane operations are included.
func (c *Client) ListProviderOperations(ctx context.Context) ([]source.RawOperation, error) {
	logger := zerolog.Ctx(ctx)

	var raw []source.RawOperation
	pager := c.operations.NewListPager(&armauthorization.ProviderOperationsMetadataClientListOptions{
		Expand: to.Ptr("resourceTypes"),
	})
	providers := 0
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Errorf("listing provider operations metadata: %w", err)
		}
		for _, provider := range page.Value {
			if provider == nil {
				continue
			}
			raw = append(raw, flattenProvider(provider)...)
			providers++
		}
	}
	logger.Debug().Int("providers", providers).Int("operations", len(raw)).Msg("fetched provider operations")
	return raw, nil
}

// ListProviderFeatures pulls every feature registration visible to the
// subscription. Feature names arrive as "<provider>/<feature>".
func (c *Client) ListProviderFeatures(ctx context.Context) ([]source.RawFeature, error) {
	logger := zerolog.Ctx(ctx)

	var raw []source.RawFeature
	pager := c.features.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, errors.Errorf("listing provider features: %w", err)
		}
		for _, feature := range page.Value {
			if feature == nil {
				continue
			}
			raw = append(raw, convertFeature(feature))
		}
	}
	logger.Debug().Int("features", len(raw)).Msg("fetched provider features")
	return raw, nil
}

// flattenProvider turns one provider's metadata into flat raw operation
// entries. Provider-level operations carry no resource name; operations nested
// under a resource type carry that type's display name.
func flattenProvider(provider *armauthorization.ProviderOperationsMetadata) []source.RawOperation {
	namespace := deref(provider.DisplayName)
	if namespace == "" {
		namespace = deref(provider.Name)
	}

	var raw []source.RawOperation
	for _, op := range provider.Operations {
		if op == nil {
			continue
		}
		raw = append(raw, convertOperation(namespace, "", op))
	}
	for _, rt := range provider.ResourceTypes {
		if rt == nil {
			continue
		}
		resourceName := deref(rt.DisplayName)
		if resourceName == "" {
			resourceName = deref(rt.Name)
		}
		for _, op := range rt.Operations {
			if op == nil {
				continue
			}
			raw = append(raw, convertOperation(namespace, resourceName, op))
		}
	}
	return raw
}

func convertOperation(namespace, resourceName string, op *armauthorization.ProviderOperation) source.RawOperation {
	return source.RawOperation{
		Namespace:     namespace,
		Operation:     deref(op.Name),
		OperationName: deref(op.DisplayName),
		ResourceName:  resourceName,
		IsDataAction:  deref(op.IsDataAction),
		Description:   deref(op.Description),
	}
}

func convertFeature(feature *armfeatures.FeatureResult) source.RawFeature {
	providerName, featureName, found := strings.Cut(deref(feature.Name), "/")
	if !found {
		featureName = providerName
		providerName = ""
	}
	state := ""
	if feature.Properties != nil {
		state = deref(feature.Properties.State)
	}
	return source.RawFeature{
		Namespace:         featureNamespacePlaceholder,
		ProviderName:      providerName,
		FeatureName:       featureName,
		RegistrationState: state,
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
