// ABOUTME: Collects every built-in view controller for registration.
// ABOUTME: Hosts append their own controllers to this list.

package builtins

import "github.com/2389/viewgate/internal/view"

// All returns every built-in controller.
func All() []view.Controller {
	return []view.Controller{
		Counter(),
		Notes(),
	}
}
