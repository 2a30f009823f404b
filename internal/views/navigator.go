package views

import "sync"

// State is the view currently shown. Exactly one is active at a time.
type State int

const (
	StateForm State = iota
	StateList
	StateDetail
)

func (s State) String() string {
	switch s {
	case StateForm:
		return "form"
	case StateList:
		return "list"
	case StateDetail:
		return "detail"
	default:
		return "unknown"
	}
}

// Page is what a renderer draws: the active state and its view model.
// Only the view matching State is set.
type Page struct {
	State  State
	Form   *FormView
	List   *ListView
	Detail *DetailView
}

func FormPage(v FormView) Page {
	return Page{State: StateForm, Form: &v}
}

func ListPage(v ListView) Page {
	return Page{State: StateList, List: &v}
}

func DetailPage(v DetailView) Page {
	return Page{State: StateDetail, Detail: &v}
}

// Navigator switches between the form, list and detail views of a long-lived session
// such as the terminal client. It starts on the form. Web requests have no session
// state and build their Page directly.
type Navigator struct {
	mu    sync.Mutex
	state State
}

func NewNavigator() *Navigator {
	return &Navigator{state: StateForm}
}

func (n *Navigator) ShowForm(v FormView) Page {
	n.set(StateForm)
	return FormPage(v)
}

func (n *Navigator) ShowList(v ListView) Page {
	n.set(StateList)
	return ListPage(v)
}

// ShowDetail shows the detail of the client the view was built for; the id travels
// with the view, the navigator does not remember it.
func (n *Navigator) ShowDetail(v DetailView) Page {
	n.set(StateDetail)
	return DetailPage(v)
}

func (n *Navigator) Current() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Navigator) set(s State) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
}
