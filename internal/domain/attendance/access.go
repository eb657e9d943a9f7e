package attendance

// CanManage is the single capability check for event administration.
// Super-admins manage every event. Sub-admins manage an event when it is in
// their managed set or they are listed among the event's managers. A nil
// actor or event is never manageable.
func CanManage(actor *Admin, event *Event) bool {
	if actor == nil || event == nil {
		return false
	}
	switch actor.Role {
	case RoleSuperAdmin:
		return true
	case RoleSubAdmin:
		for _, id := range actor.ManagedEventIDs {
			if id == event.ID {
				return true
			}
		}
		return event.HasManager(actor.ID)
	default:
		return false
	}
}
