package services

import "github.com/tbourn/go-forum-backend/internal/domain"

// CanModifyRoom reports whether actor may update or delete room: only its
// host may.
func CanModifyRoom(actor domain.Actor, room *domain.Room) bool {
	return room != nil && actor.Is(room.HostID)
}

// CanDeleteMessage reports whether actor may delete msg: only its author may.
func CanDeleteMessage(actor domain.Actor, msg *domain.Message) bool {
	return msg != nil && actor.Is(msg.UserID)
}

func requireUser(actor domain.Actor) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}
