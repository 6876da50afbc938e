package form

// SignupForm 注册表单
type SignupForm struct {
	Username  string `form:"username" validate:"notblank,max=150,username"`
	Email     string `form:"email" validate:"required,email,max=254"`
	Password1 string `form:"password1" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
	Errors    Errors `form:"-" validate:"-"`
}

func (f *SignupForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}

// LoginForm 登录表单，username 也可以填邮箱
type LoginForm struct {
	Username string `form:"username" validate:"notblank"`
	Password string `form:"password" validate:"required"`
	Next     string `form:"next"`
	Errors   Errors `form:"-" validate:"-"`
}

func (f *LoginForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}

type PasswordChangeForm struct {
	OldPassword  string `form:"old_password" validate:"required"`
	NewPassword1 string `form:"new_password1" validate:"required,min=8,max=128"`
	NewPassword2 string `form:"new_password2" validate:"required,eqfield=NewPassword1"`
	Errors       Errors `form:"-" validate:"-"`
}

func (f *PasswordChangeForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}

type PasswordResetForm struct {
	Email  string `form:"email" validate:"required,email"`
	Errors Errors `form:"-" validate:"-"`
}

func (f *PasswordResetForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}

type PasswordResetConfirmForm struct {
	Email        string `form:"email" validate:"required,email"`
	Code         string `form:"code" validate:"required,len=6,numeric"`
	NewPassword1 string `form:"new_password1" validate:"required,min=8,max=128"`
	NewPassword2 string `form:"new_password2" validate:"required,eqfield=NewPassword1"`
	Errors       Errors `form:"-" validate:"-"`
}

func (f *PasswordResetConfirmForm) Validate() bool {
	f.Errors = Errors{}
	check(f, f.Errors)
	return !f.Errors.Any()
}
