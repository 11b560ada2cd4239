package viewdata_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewBaseVM_Visitor(t *testing.T) {
	viewdata.Init(viewdata.Site{Name: "Campus Share", SupportEmail: "help@campus.test"})
	t.Cleanup(func() { viewdata.Init(viewdata.Site{}) })

	vm := viewdata.NewBaseVM(httptest.NewRequest("GET", "/", nil), "Welcome", "/")

	if vm.IsLoggedIn {
		t.Error("visitor should not be logged in")
	}
	if vm.Role != "visitor" {
		t.Errorf("Role: got %q", vm.Role)
	}
	if vm.SiteName != "Campus Share" || vm.Footer.SiteName != "Campus Share" {
		t.Errorf("site name not propagated: %q / %q", vm.SiteName, vm.Footer.SiteName)
	}
	if vm.Title != "Welcome" {
		t.Errorf("Title: got %q", vm.Title)
	}
}

func TestNewBaseVM_SignedIn(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/dashboard", nil), &auth.SessionUser{
		ID:   primitive.NewObjectID().Hex(),
		Name: "Ada",
		Role: "faculty",
	})

	vm := viewdata.NewBaseVM(req, "Dashboard", "/")

	if !vm.IsLoggedIn || vm.UserName != "Ada" || vm.Role != "faculty" {
		t.Errorf("got %+v", vm)
	}
}

func TestInit_DefaultsName(t *testing.T) {
	viewdata.Init(viewdata.Site{})
	if got := viewdata.CurrentSite().Name; got != "EduSync" {
		t.Errorf("Name: got %q", got)
	}
}
