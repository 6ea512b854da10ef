package bills

// DefaultBillTypes seeds the picker when storage holds no bill-type list.
var DefaultBillTypes = []string{
	"Electric Bill",
	"Truck note",
	"Water",
	"Internet",
	"Garbage",
	"Phone",
	"Insurance",
	"IRS",
	"Shed",
	"Couch Lambert",
	"Upstart",
	"Hulu",
	"Netflix",
	"Walmart+",
}
