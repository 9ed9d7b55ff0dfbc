package board

import (
	"fmt"

	"github.com/nhle/taskboard/internal/model"
)

type seedTask struct {
	content  string
	user     int
	priority model.Priority
	category model.Category
}

var sampleUsers = []string{"Jan Kowalski", "Anna Nowak"}

var sampleTasks = []seedTask{
	{"Prepare the meeting presentation", 0, model.PriorityHigh, model.CategoryWork},
	{"Buy groceries", 0, model.PriorityMedium, model.CategoryPersonal},
	{"Read a book about Go", 1, model.PriorityLow, model.CategoryStudy},
	{"Tidy up the desk", 1, model.PriorityMedium, model.CategoryPersonal},
	{"Write the monthly report", 0, model.PriorityHigh, model.CategoryWork},
}

// sampleDone lists the indices of sample tasks created as completed.
var sampleDone = []int{2}

var demoUsers = []string{"Maria Kowalska", "Piotr Nowak", "Anna Wiśniewska", "Tomasz Wójcik"}

var demoTasks = []seedTask{
	{"Prepare the quarterly presentation", 0, model.PriorityHigh, model.CategoryWork},
	{"Buy a birthday present for mum", 0, model.PriorityMedium, model.CategoryPersonal},
	{"Read an article about goroutines", 1, model.PriorityLow, model.CategoryStudy},
	{"Organize the team meeting", 1, model.PriorityHigh, model.CategoryWork},
	{"Fix the bathroom tap", 2, model.PriorityMedium, model.CategoryPersonal},
	{"Finish the Go course", 2, model.PriorityHigh, model.CategoryStudy},
	{"Plan a weekend trip", 3, model.PriorityLow, model.CategoryHobby},
	{"Write the monthly report", 3, model.PriorityHigh, model.CategoryWork},
	{"Clean the garage", 0, model.PriorityLow, model.CategoryPersonal},
	{"Watch a tutorial on terminal UIs", 1, model.PriorityMedium, model.CategoryStudy},
}

var demoDone = []int{0, 2, 4, 7}

// SeedIfEmpty creates the sample users and tasks when the store holds
// neither. It reports whether anything was created.
func (b *Board) SeedIfEmpty() (bool, error) {
	if len(b.users.AllUsers()) > 0 || len(b.tasks.AllTasks()) > 0 {
		return false, nil
	}
	if err := b.seed(sampleUsers, sampleTasks, sampleDone); err != nil {
		return false, err
	}
	b.log.Info().Msg("created sample data")
	return true, nil
}

// CreateDemoData replaces everything with the demo data set.
func (b *Board) CreateDemoData() error {
	if err := b.ClearAll(); err != nil {
		return err
	}
	if err := b.seed(demoUsers, demoTasks, demoDone); err != nil {
		return err
	}
	b.log.Info().Msg("created demo data")
	return nil
}

// seed adds users, makes the first one active, adds tasks and toggles
// the ones at the done indices.
func (b *Board) seed(names []string, tasks []seedTask, done []int) error {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		u, err := b.users.AddUser(name)
		if err != nil {
			return fmt.Errorf("seeding user %q: %w", name, err)
		}
		ids = append(ids, u.ID)
	}
	if err := b.users.SetActiveUser(ids[0]); err != nil {
		return fmt.Errorf("seeding active user: %w", err)
	}

	for _, st := range tasks {
		if _, err := b.tasks.AddTask(st.content, ids[st.user], st.priority, st.category); err != nil {
			return fmt.Errorf("seeding task %q: %w", st.content, err)
		}
	}

	all := b.tasks.AllTasks()
	for _, i := range done {
		if i >= len(all) {
			continue
		}
		if err := b.tasks.ToggleTaskStatus(all[i].ID); err != nil {
			return fmt.Errorf("seeding task status: %w", err)
		}
	}
	return nil
}
