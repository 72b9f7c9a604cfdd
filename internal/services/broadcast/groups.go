package broadcast

const (
	// GroupAllCameras receives results from every camera
	GroupAllCameras = "AllCameras"
	// GroupAllUsers receives alerts; every connection joins it on connect
	GroupAllUsers = "AllUsers"

	cameraGroupPrefix = "Camera_"
)

// Event names as seen by viewers
const (
	EventDetectionResult = "ReceiveDetectionResult"
	EventAlert           = "ReceiveAlert"
	EventCameraStatus    = "CameraStatusUpdate"
	EventError           = "Error"
)

// CameraGroup returns the group key for a single camera's viewers
func CameraGroup(cameraID string) string {
	return cameraGroupPrefix + cameraID
}

// Event is one named push. The JSON form is the websocket frame.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data"`
}
