package http

import (
	"github.com/mrlokans/bookworms/internal/entities"
)

// access answers ownership questions. Admins pass every check.
type access struct {
	children   ChildStore
	classrooms ClassroomStore
}

func isAdmin(user *entities.User) bool {
	return user.Role == entities.UserRoleAdmin
}

// canManageChild allows the child's parent and admins.
func (a access) canManageChild(user *entities.User, child *entities.Child) bool {
	return isAdmin(user) || (user.Role == entities.UserRoleParent && child.ParentID == user.ID)
}

// canViewChild also allows the teacher of the child's classroom.
func (a access) canViewChild(user *entities.User, child *entities.Child) (bool, error) {
	if a.canManageChild(user, child) {
		return true, nil
	}
	if user.Role != entities.UserRoleTeacher || child.ClassroomID == nil {
		return false, nil
	}
	classroom, err := a.classrooms.GetClassroom(*child.ClassroomID)
	if err != nil {
		return false, err
	}
	return classroom.TeacherID == user.ID, nil
}

// canManageClassroom allows the owning teacher and admins.
func (a access) canManageClassroom(user *entities.User, classroom *entities.Classroom) bool {
	return isAdmin(user) || (user.Role == entities.UserRoleTeacher && classroom.TeacherID == user.ID)
}

// canViewClassroom also allows parents with a child in the classroom.
func (a access) canViewClassroom(user *entities.User, classroom *entities.Classroom) (bool, error) {
	if a.canManageClassroom(user, classroom) {
		return true, nil
	}
	if user.Role != entities.UserRoleParent {
		return false, nil
	}
	return a.children.IsParentInClassroom(user.ID, classroom.ID)
}

// shelfPermissions reports whether user may read and modify a shelf. Shelves
// follow the permissions of the child or classroom holding them.
func (a access) shelfPermissions(user *entities.User, shelf *entities.Bookshelf) (view, manage bool, err error) {
	switch {
	case shelf.ChildID != nil:
		child, err := a.children.GetChild(*shelf.ChildID)
		if err != nil {
			return false, false, err
		}
		view, err = a.canViewChild(user, child)
		return view, a.canManageChild(user, child), err
	case shelf.ClassroomID != nil:
		classroom, err := a.classrooms.GetClassroom(*shelf.ClassroomID)
		if err != nil {
			return false, false, err
		}
		view, err = a.canViewClassroom(user, classroom)
		return view, a.canManageClassroom(user, classroom), err
	}
	return isAdmin(user), isAdmin(user), nil
}
