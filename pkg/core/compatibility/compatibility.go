package compatibility

import (
	"slices"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
)

// donateTo lists, for each donor type, the recipient types it may donate to
var donateTo = map[model.BloodType][]model.BloodType{
	model.BloodTypeONeg:  {model.BloodTypeONeg, model.BloodTypeOPos, model.BloodTypeANeg, model.BloodTypeAPos, model.BloodTypeBNeg, model.BloodTypeBPos, model.BloodTypeABNeg, model.BloodTypeABPos},
	model.BloodTypeOPos:  {model.BloodTypeOPos, model.BloodTypeAPos, model.BloodTypeBPos, model.BloodTypeABPos},
	model.BloodTypeANeg:  {model.BloodTypeANeg, model.BloodTypeAPos, model.BloodTypeABNeg, model.BloodTypeABPos},
	model.BloodTypeAPos:  {model.BloodTypeAPos, model.BloodTypeABPos},
	model.BloodTypeBNeg:  {model.BloodTypeBNeg, model.BloodTypeBPos, model.BloodTypeABNeg, model.BloodTypeABPos},
	model.BloodTypeBPos:  {model.BloodTypeBPos, model.BloodTypeABPos},
	model.BloodTypeABNeg: {model.BloodTypeABNeg, model.BloodTypeABPos},
	model.BloodTypeABPos: {model.BloodTypeABPos},
}

// receiveFrom is the exact inversion of donateTo, built once at init
var receiveFrom = invert(donateTo)

func invert(table map[model.BloodType][]model.BloodType) map[model.BloodType][]model.BloodType {
	inverted := make(map[model.BloodType][]model.BloodType, len(model.AllBloodTypes))

	// Walk donors in canonical order so each receive-from list is ordered too
	for _, donor := range model.AllBloodTypes {
		for _, recipient := range table[donor] {
			inverted[recipient] = append(inverted[recipient], donor)
		}
	}

	return inverted
}

// CompatibleDonorTypes returns the donor types a recipient of the given type
// can receive from, in canonical order.
// Unknown recipient types yield an empty slice: no donors are eligible.
func CompatibleDonorTypes(recipient model.BloodType) []model.BloodType {
	return slices.Clone(receiveFrom[recipient])
}

// CanDonate reports whether a donor of type donor may give to a recipient of type recipient
func CanDonate(donor, recipient model.BloodType) bool {
	return slices.Contains(donateTo[donor], recipient)
}
