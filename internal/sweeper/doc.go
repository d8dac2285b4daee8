// Package sweeper runs a scheduled job that resumes chats whose hand-off
// pause has expired, keeping the stored sessions in step with what the
// gate would decide on the next message.
package sweeper
