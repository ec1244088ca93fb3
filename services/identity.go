package services

import (
	"github.com/google/uuid"

	"rooneyform-scraper/models"
)

// ListingNamespace is the v5 namespace for listing identifiers.
var ListingNamespace = uuid.NameSpaceDNS

// DeriveID returns the name-based (v5) identifier of a listing. The name is
// "team_season_kitType" with absent fields as empty strings, so listings that
// share the triple share the identifier.
func DeriveID(f models.Fields) string {
	k := f.Key()
	name := k.Team + "_" + k.Season + "_" + k.KitType
	return uuid.NewSHA1(ListingNamespace, []byte(name)).String()
}
