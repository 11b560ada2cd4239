// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false, so ok=true always means a valid,
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// StatsRoles lists the roles allowed to read a stats category.
// A nil slice means the category is public.
func StatsRoles(cat models.StatsCategory) []string {
	switch cat {
	case models.StatsAdmin:
		return []string{models.RoleAdmin}
	case models.StatsFaculty:
		return []string{models.RoleFaculty, models.RoleAdmin}
	}
	return nil
}

// CanViewStats reports whether a user with role may read cat.
func CanViewStats(role string, cat models.StatsCategory) bool {
	allowed := StatsRoles(cat)
	if allowed == nil {
		return true
	}
	role = strings.ToLower(strings.TrimSpace(role))
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// VisibleStats returns the stats categories the request's user may see,
// in display order.
func VisibleStats(r *http.Request) []models.StatsCategory {
	role, _, _, _ := UserCtx(r)
	var out []models.StatsCategory
	for _, cat := range models.StatsCategories {
		if CanViewStats(role, cat) {
			out = append(out, cat)
		}
	}
	return out
}
