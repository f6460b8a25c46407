package telegram

// FileLocation addresses file bytes on a DC for GetFile. It is a sealed
// interface: the three variants below mirror the backend's input location
// constructors and nothing else satisfies it.
type FileLocation interface {
	isFileLocation()
}

// DocumentLocation addresses a document (video, audio, generic file).
// ThumbSize is empty for the full file.
type DocumentLocation struct {
	ID            int64
	AccessHash    int64
	FileReference []byte
	ThumbSize     string
}

// PhotoLocation addresses one size of a compressed photo.
type PhotoLocation struct {
	ID            int64
	AccessHash    int64
	FileReference []byte
	ThumbSize     string
}

// PeerPhotoLocation addresses a chat or channel avatar through its owning
// peer. Big selects the full-size variant over the preview.
type PeerPhotoLocation struct {
	Peer     InputPeer
	VolumeID int64
	LocalID  int
	Big      bool
}

func (DocumentLocation) isFileLocation()  {}
func (PhotoLocation) isFileLocation()     {}
func (PeerPhotoLocation) isFileLocation() {}

// InputPeer identifies the owner of a peer photo. Sealed like FileLocation.
type InputPeer interface {
	isInputPeer()
}

// UserPeer is a regular user account.
type UserPeer struct {
	UserID     int64
	AccessHash int64
}

// ChatPeer is a basic group, which has no access hash.
type ChatPeer struct {
	ChatID int64
}

// ChannelPeer is a channel or supergroup.
type ChannelPeer struct {
	ChannelID  int64
	AccessHash int64
}

func (UserPeer) isInputPeer()    {}
func (ChatPeer) isInputPeer()    {}
func (ChannelPeer) isInputPeer() {}
