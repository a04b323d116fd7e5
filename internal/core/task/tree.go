package task

// Tree utilities over []Task forests. All functions are persistent: they
// return a new forest and never mutate the input. A missing id is a silent
// no-op that returns a value-equal forest.

// FindByID returns the task with the given id anywhere in the forest.
func FindByID(forest []Task, id string) (Task, bool) {
	for _, t := range forest {
		if t.ID == id {
			return t, true
		}
		if sub, ok := FindByID(t.Subtasks, id); ok {
			return sub, true
		}
	}
	return Task{}, false
}

// Flatten returns every task in the forest in depth-first order, parents
// before their subtasks.
func Flatten(forest []Task) []Task {
	var out []Task
	for _, t := range forest {
		out = append(out, t)
		out = append(out, Flatten(t.Subtasks)...)
	}
	return out
}

// Count returns the total number of nodes in the forest.
func Count(forest []Task) int {
	n := 0
	for _, t := range forest {
		n += 1 + Count(t.Subtasks)
	}
	return n
}

// UpdateByID applies the patch to the task with the given id, recursing into
// every subtask list.
func UpdateByID(forest []Task, id string, patch Patch) []Task {
	out := make([]Task, len(forest))
	for i, t := range forest {
		if t.ID == id {
			out[i] = patch.Apply(t)
			continue
		}
		if len(t.Subtasks) > 0 {
			t.Subtasks = UpdateByID(t.Subtasks, id, patch)
		}
		out[i] = t
	}
	return out
}

// DeleteByID removes the task with the given id and, with it, its entire
// subtree. Removing a parent removes its subtasks implicitly because the
// parent owns them.
func DeleteByID(forest []Task, id string) []Task {
	out := make([]Task, 0, len(forest))
	for _, t := range forest {
		if t.ID == id {
			continue
		}
		t.Subtasks = DeleteByID(t.Subtasks, id)
		out = append(out, t)
	}
	return out
}

// InsertSubtask appends child to the subtask list of the task with the given
// parent id. The forest is returned unchanged if the parent is absent.
func InsertSubtask(forest []Task, parentID string, child Task) []Task {
	out := make([]Task, len(forest))
	for i, t := range forest {
		if t.ID == parentID {
			subs := make([]Task, len(t.Subtasks), len(t.Subtasks)+1)
			copy(subs, t.Subtasks)
			t.Subtasks = append(subs, child)
			out[i] = t
			continue
		}
		if len(t.Subtasks) > 0 {
			t.Subtasks = InsertSubtask(t.Subtasks, parentID, child)
		}
		out[i] = t
	}
	return out
}
