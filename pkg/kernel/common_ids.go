package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type JobID string

func NewJobID(id string) JobID { return JobID(id) }
func (j JobID) String() string { return string(j) }
func (j JobID) IsEmpty() bool  { return string(j) == "" }

type MatchID string

func NewMatchID(id string) MatchID { return MatchID(id) }
func (m MatchID) String() string   { return string(m) }
func (m MatchID) IsEmpty() bool    { return string(m) == "" }
