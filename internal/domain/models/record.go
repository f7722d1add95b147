package models

import (
	pkgmodels "github.com/voltfield/backend/pkg/models"
)

// SObject is aliased from pkg/models so application code that mixes typed
// entities with generic records imports a single models package. The
// definition lives in pkg/models because pkg/query scans rows into it.
type SObject = pkgmodels.SObject
