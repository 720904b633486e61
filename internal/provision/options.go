package provision

// Plan and storage options offered during provisioning. The storage kind
// choices depend on the selected storage SKU; premium block storage and the
// legacy blob-only kind are not available on every SKU.

// AppPlanSKUs are the hosting plan sizes offered for the web apps.
var AppPlanSKUs = []string{
	"B1", "B2", "B3",
	"P0v3", "P1v3", "P1mv3",
	"P2v3", "P2mv3",
	"P3v3", "P3mv3",
	"P4mv3", "P5mv3",
}

// StorageSKUs are the storage replication tiers offered.
var StorageSKUs = []string{
	"Premium_LRS",
	"Premium_ZRS",
	"Standard_GRS",
	"Standard_GZRS",
	"Standard_LRS",
	"Standard_RAGRS",
	"Standard_RAGZRS",
	"Standard_ZRS",
}

// StorageKindsFor returns the storage account kinds valid for a SKU. Every
// SKU supports the two generic kinds; a few add specialized ones.
func StorageKindsFor(sku string) []string {
	kinds := []string{"Storage", "StorageV2"}
	switch sku {
	case "Standard_LRS", "Standard_GRS", "Standard_RAGRS":
		kinds = append(kinds, "BlobStorage")
	case "Premium_LRS":
		kinds = append(kinds, "FileStorage", "BlockBlobStorage")
	}
	return kinds
}
