package store

import (
	"stride/internal/gateway"
	"stride/internal/models"
)

type taskRemote struct{ g *gateway.Gateway }

func (r taskRemote) List(userID string) ([]models.Task, error) { return r.g.ListTasks(userID) }
func (r taskRemote) Create(t models.Task) (models.Task, error) { return r.g.CreateTask(t) }
func (r taskRemote) Toggle(id string) error                    { return r.g.ToggleTask(id) }
func (r taskRemote) Delete(id string) error                    { return r.g.DeleteTask(id) }

type habitRemote struct{ g *gateway.Gateway }

func (r habitRemote) List(userID string) ([]models.Habit, error)  { return r.g.ListHabits(userID) }
func (r habitRemote) Create(h models.Habit) (models.Habit, error) { return r.g.CreateHabit(h) }
func (r habitRemote) Toggle(id string) error                      { return r.g.ToggleHabit(id) }
func (r habitRemote) Delete(id string) error                      { return r.g.DeleteHabit(id) }

// NewTaskStore builds the task store backed by the remote gateway.
func NewTaskStore(g *gateway.Gateway, hooks Hooks[models.Task]) *Store[models.Task] {
	return New[models.Task](taskRemote{g}, hooks)
}

// NewHabitStore builds the habit store backed by the remote gateway.
func NewHabitStore(g *gateway.Gateway, hooks Hooks[models.Habit]) *Store[models.Habit] {
	return New[models.Habit](habitRemote{g}, hooks)
}
